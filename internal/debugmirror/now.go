package debugmirror

import "time"

func defaultNow() uint64 { return uint64(time.Now().UnixMilli()) }
