package session

import (
	"errors"
	"time"

	"github.com/driftwoodav/obsbridge/internal/metrics"
	"github.com/driftwoodav/obsbridge/internal/overrides"
	"github.com/driftwoodav/obsbridge/internal/wire"
)

// readOnce services event source 5 (§4.7): a single inbound read bounded by
// ReadPollTimeout so the loop returns to service the other sources. It
// reports terminate=true when Run should return, carrying a non-nil err
// only for genuine write-side failures encountered while reacting to the
// frame.
func (s *Session) readOnce() (terminate bool, err error) {
	_ = s.cfg.CmdReader.SetReadDeadline(s.cfg.now().Add(s.cfg.ReadPollTimeout))
	env, rerr := s.codec.ReadEnvelope(s.cfg.CmdReader)
	if rerr != nil {
		if isTimeout(rerr) {
			return false, nil
		}
		if errors.Is(rerr, wire.ErrEndOfStream) {
			return true, nil // peer closed; transport errors terminate silently (§7)
		}
		if errors.Is(rerr, wire.ErrFrameTooLarge) {
			return s.emitProtocolErrorAndMaybeReset(wire.CodeFrameTooLarge, "", rerr)
		}
		if errors.Is(rerr, wire.ErrDecodeFailed) {
			return s.emitProtocolErrorAndMaybeReset(wire.CodeDecodeFailed, "", rerr)
		}
		metrics.IncError(metrics.ErrCmdRead)
		return true, nil // unclassified I/O error: transport error, terminate silently
	}
	metrics.IncCmdReceived()
	return s.dispatch(env)
}

func (s *Session) dispatch(env *wire.Envelope) (terminate bool, err error) {
	if env.Version != wire.ProtocolVersion {
		if werr := s.emitUserNotice(wire.PriorityHigh, "error", "unsupported envelope version"); werr != nil {
			return true, werr
		}
		s.state = stateTerminated
		return true, nil
	}

	if s.state == stateAwaitHello {
		if env.Type != wire.TypeHello {
			return s.emitProtocolErrorAndMaybeReset(wire.CodeUnknownType, env.ID, nil)
		}
		return s.handleHello(env)
	}

	switch env.Type {
	case wire.TypePing:
		return s.handlePing(env)
	case wire.TypeRequestStatus:
		return s.handleRequestStatus(env)
	case wire.TypeSetModeRequest:
		return s.handleSetModeRequest(env)
	case wire.TypeSetSettingRequest:
		return s.handleSetSettingRequest(env)
	case wire.TypeSceneSwitchResult:
		return s.handleSceneSwitchResult(env)
	case wire.TypeObsShutdownNotice:
		return s.handleObsShutdownNotice(env)
	default:
		return s.emitProtocolErrorAndMaybeReset(wire.CodeUnknownType, env.ID, nil)
	}
}

func (s *Session) handleHello(env *wire.Envelope) (terminate bool, err error) {
	hello, derr := wire.DecodeHelloPayload(env.Payload)
	if derr != nil {
		return s.emitProtocolErrorAndMaybeReset(wire.CodeInvalidPayload, env.ID, derr)
	}
	if hello.ProtocolVersion != wire.ProtocolVersion {
		if werr := s.emitUserNotice(wire.PriorityHigh, "error", "unsupported protocol_version"); werr != nil {
			return true, werr
		}
		s.state = stateTerminated
		return true, nil
	}
	ack := s.makeEnvelope(wire.TypeHelloAck, wire.PriorityHigh, wire.HelloAckPayload{
		CoreVersion:     s.cfg.CoreVersion,
		ProtocolVersion: wire.ProtocolVersion,
		Capabilities:    Capabilities,
	})
	if werr := s.writeEnvelope(ack); werr != nil {
		return true, werr
	}
	s.state = stateRunning
	s.lastPing = s.cfg.now()
	s.lastPush = time.Time{} // forces the next iteration's push to fire immediately
	return false, nil
}

func (s *Session) handlePing(env *wire.Envelope) (terminate bool, err error) {
	ping, derr := wire.DecodePingPayload(env.Payload)
	if derr != nil {
		return s.emitProtocolErrorAndMaybeReset(wire.CodeInvalidPayload, env.ID, derr)
	}
	pong := s.makeEnvelope(wire.TypePong, wire.PriorityNormal, wire.PongPayload{Nonce: ping.Nonce})
	if werr := s.writeEnvelope(pong); werr != nil {
		return true, werr
	}
	s.lastPing = s.cfg.now()
	return false, nil
}

func (s *Session) handleRequestStatus(env *wire.Envelope) (terminate bool, err error) {
	if _, derr := wire.DecodeRequestStatusPayload(env.Payload); derr != nil {
		return s.emitProtocolErrorAndMaybeReset(wire.CodeInvalidPayload, env.ID, derr)
	}
	snap := s.makeEnvelope(wire.TypeStatusSnapshot, wire.PriorityHigh, s.buildSnapshot())
	if werr := s.writeEnvelope(snap); werr != nil {
		return true, werr
	}
	s.lastPush = s.cfg.now()
	return false, nil
}

func (s *Session) handleSetModeRequest(env *wire.Envelope) (terminate bool, err error) {
	req, derr := wire.DecodeSetModeRequestPayload(env.Payload)
	if derr != nil {
		return s.emitProtocolErrorAndMaybeReset(wire.CodeInvalidPayload, env.ID, derr)
	}
	var mode overrides.Mode
	switch req.Mode {
	case "studio":
		mode = overrides.ModeStudio
	case "irl":
		mode = overrides.ModeIrl
	default:
		return s.emitProtocolErrorAndMaybeReset(wire.CodeInvalidPayload, env.ID, nil)
	}
	changed := s.ovr.SetMode(mode)
	if !changed {
		return false, nil
	}
	if werr := s.emitUserNotice(wire.PriorityNormal, "info", "mode set to "+req.Mode); werr != nil {
		return true, werr
	}
	snap := s.makeEnvelope(wire.TypeStatusSnapshot, wire.PriorityHigh, s.buildSnapshot())
	if werr := s.writeEnvelope(snap); werr != nil {
		return true, werr
	}
	s.lastPush = s.cfg.now()
	return false, nil
}

func (s *Session) handleSetSettingRequest(env *wire.Envelope) (terminate bool, err error) {
	req, derr := wire.DecodeSetSettingRequestPayload(env.Payload)
	if derr != nil {
		return s.emitProtocolErrorAndMaybeReset(wire.CodeInvalidPayload, env.ID, derr)
	}
	changed, serr := s.ovr.SetSetting(req.Key, req.Value)
	if serr != nil {
		return s.emitProtocolErrorAndMaybeReset(wire.CodeInvalidPayload, env.ID, serr)
	}
	if !changed {
		return false, nil
	}
	if werr := s.emitUserNotice(wire.PriorityNormal, "info", "setting "+req.Key+" updated"); werr != nil {
		return true, werr
	}
	snap := s.makeEnvelope(wire.TypeStatusSnapshot, wire.PriorityHigh, s.buildSnapshot())
	if werr := s.writeEnvelope(snap); werr != nil {
		return true, werr
	}
	s.lastPush = s.cfg.now()
	return false, nil
}

func (s *Session) handleSceneSwitchResult(env *wire.Envelope) (terminate bool, err error) {
	res, derr := wire.DecodeSceneSwitchResultPayload(env.Payload)
	if derr != nil {
		return s.emitProtocolErrorAndMaybeReset(wire.CodeInvalidPayload, env.ID, derr)
	}
	if _, ok := s.pend.Remove(res.RequestID); ok {
		s.cfg.Mirror.SetPendingSwitchCount(s.pend.Len())
		if res.OK {
			s.cfg.Mirror.SetLastSwitchResult(res.RequestID, "ok", "")
			metrics.IncSwitchSceneAck("ok")
		} else {
			s.cfg.Mirror.SetLastSwitchResult(res.RequestID, "error", res.Error)
			metrics.IncSwitchSceneAck("error")
		}
		return false, nil
	}
	s.cfg.Mirror.SetLastSwitchResult(res.RequestID, "unknown_request", "")
	s.cfg.Mirror.SetLastNotice("scene_switch_result for unknown request " + res.RequestID)
	metrics.IncSwitchSceneAck("unknown_request")
	return false, nil
}

func (s *Session) handleObsShutdownNotice(env *wire.Envelope) (terminate bool, err error) {
	notice, derr := wire.DecodeObsShutdownNoticePayload(env.Payload)
	if derr != nil {
		return s.emitProtocolErrorAndMaybeReset(wire.CodeInvalidPayload, env.ID, derr)
	}
	s.cfg.Mirror.SetLastNotice("obs_shutdown_notice: " + notice.Reason)
	s.state = stateTerminated
	return true, nil
}

func (s *Session) emitUserNotice(priority wire.Priority, level, message string) error {
	env := s.makeEnvelope(wire.TypeUserNotice, priority, wire.UserNoticePayload{Level: level, Message: message})
	return s.writeEnvelope(env)
}

// emitProtocolErrorAndMaybeReset emits a protocol_error, accounts it in the
// tracker, and signals termination either because the write itself failed
// or because the tracker's sliding window exceeded its threshold (§4.3,
// §7: "repeated errors in a 10-second window trigger a deliberate session
// reset").
func (s *Session) emitProtocolErrorAndMaybeReset(code, relatedID string, cause error) (terminate bool, err error) {
	payload := wire.ProtocolErrorPayload{Code: code, Message: code}
	if cause != nil {
		payload.Message = cause.Error()
	}
	if relatedID != "" {
		payload.RelatedMessageID = relatedID
		payload.HasRelated = true
	}
	metrics.IncProtocolError(code)
	env := s.makeEnvelope(wire.TypeProtocolError, wire.PriorityHigh, payload)
	if werr := s.writeEnvelope(env); werr != nil {
		s.state = stateTerminated
		return true, werr
	}
	if s.track.Note(s.cfg.now()) {
		metrics.IncSessionReset()
		s.state = stateTerminated
		return true, nil
	}
	return false, nil
}
