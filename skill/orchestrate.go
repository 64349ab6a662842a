package skill

import (
	"context"
	"fmt"

	"github.com/BaSui01/convskills/types"
	"go.uber.org/zap"
)

// Orchestrate runs one turn and returns the response. A hook or handler
// error aborts the turn; no partial response is returned.
func (i *Instance) Orchestrate(ctx context.Context, req *TurnRequest) (*SkillResponse, error) {
	return i.run(ctx, req, nil)
}

func (i *Instance) run(ctx context.Context, req *TurnRequest, extra map[string]any) (*SkillResponse, error) {
	if req == nil {
		req = &TurnRequest{}
	}
	t := i.newTurn(req, extra)

	if err := i.route(ctx, t); err != nil {
		if _, ok := types.AsError(err); ok {
			return nil, err
		}
		return nil, types.NewError(types.ErrHookFailed, fmt.Sprintf("skill %s failed", i.decl.id)).
			WithCause(err).WithSkill(i.decl.id)
	}
	return t.response, nil
}

func (i *Instance) newTurn(req *TurnRequest, extra map[string]any) *Turn {
	if extra == nil {
		extra = map[string]any{}
	}
	return &Turn{
		skillID:     i.decl.id,
		lang:        i.lang,
		request:     req,
		state:       NewSkillState(req),
		response:    NewSkillResponse(i.slots.Clone(), req.State),
		strings:     i.strings,
		extra:       extra,
		contextPath: i.contextPath,
		logger:      i.logger,
		lateral:     i.lateral,
	}
}

// route dispatches the turn: a confirmation answer goes to the Confirmer
// when there is one, otherwise the declared strategy runs.
func (i *Instance) route(ctx context.Context, t *Turn) error {
	behavior := i.decl.behavior

	if ev := t.state.ConfirmationEvent(); ev != nil {
		if c, ok := behavior.(Confirmer); ok {
			switch ev.Type {
			case ConfirmationConfirmed:
				i.logger.Debug("routing to confirm callback")
				return c.OnConfirm(ctx, t)
			case ConfirmationCancelled:
				i.logger.Debug("routing to cancel callback")
				return c.OnCancel(ctx, t)
			default:
				i.logger.Warn("unknown confirmation event", zap.String("type", string(ev.Type)))
			}
		}
	}

	switch i.decl.strategy {
	case StrategyPassThrough:
		return behavior.(PassThrougher).PassThrough(ctx, t)
	case StrategyOtherwise:
		return behavior.(Otherwiser).Otherwise(ctx, t)
	default:
		return i.onSlotStateChange(ctx, t)
	}
}

// onSlotStateChange is the slot-filling algorithm: pre-hook, merge and
// dispatch in reported order, post-hook. Terminal outcomes short-circuit
// the remaining steps.
func (i *Instance) onSlotStateChange(ctx context.Context, t *Turn) error {
	behavior := i.decl.behavior

	if init, ok := behavior.(SlotsInitializer); ok {
		if err := init.InitializeSlotsInFlight(ctx, t); err != nil {
			return err
		}
	}

	if !t.IsCompleteOrCancelled() {
		if err := i.mergeAndDispatch(ctx, t); err != nil {
			return err
		}
	}

	if t.IsCompleteOrCancelled() {
		return nil
	}
	if post, ok := behavior.(PostSlotChanger); ok {
		return post.PostSlotStateChange(ctx, t)
	}
	return nil
}

func (i *Instance) mergeAndDispatch(ctx context.Context, t *Turn) error {
	defer func() { t.merged = true }()

	for _, incoming := range t.state.Slots() {
		inFlight := t.response.Slot(incoming.Name)
		if inFlight == nil {
			i.logger.Debug("incoming slot not in flight, skipped", zap.String("slot", incoming.Name))
			continue
		}
		inFlight.Value = incoming.Value.Clone()

		if t.IsCompleteOrCancelled() || !incoming.HasChanged() {
			continue
		}
		h, ok := i.handlers[incoming.Name]
		if !ok {
			h = defaultHandler(i.decl.behavior)
		}
		if err := h(ctx, t, incoming, inFlight); err != nil {
			return fmt.Errorf("slot %s: %w", incoming.Name, err)
		}
	}
	return nil
}
