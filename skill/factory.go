package skill

import (
	"context"

	"github.com/BaSui01/convskills/locale"
	"github.com/BaSui01/convskills/types"
	"go.uber.org/zap"
)

// DefaultContextVariablesPath is where FromSessionOrContext looks inside the
// request context when a session variable is absent.
const DefaultContextVariablesPath = "integrations.chat.OMS"

// Factory builds per-turn skill instances from declarations.
type Factory struct {
	strings     locale.Provider
	contextPath string
	logger      *zap.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithContextVariablesPath changes the context subtree consulted by
// FromSessionOrContext. An empty path disables the context fallback.
func WithContextVariablesPath(path string) FactoryOption {
	return func(f *Factory) { f.contextPath = path }
}

// NewFactory creates an instance factory backed by a string provider.
func NewFactory(strings locale.Provider, logger *zap.Logger, opts ...FactoryOption) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Factory{
		strings:     strings,
		contextPath: DefaultContextVariablesPath,
		logger:      logger.With(zap.String("component", "skill_factory")),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Instance is a skill prepared for one turn.
type Instance struct {
	decl        *Declaration
	lang        string
	strings     locale.Bundle
	slots       *SlotsInFlight
	handlers    map[string]SlotChangeHandler
	contextPath string
	logger      *zap.Logger
	lateral     LateralRunner
}

// New prepares decl for a turn in lang: it merges the string bundles of the
// chain base first, materializes the declared slots with their localized
// texts, builds the initial slots in flight and binds the change handlers.
func (f *Factory) New(ctx context.Context, decl *Declaration, lang string) (*Instance, error) {
	if lang == "" {
		lang = locale.DefaultLanguage
	}

	var bundle locale.Bundle
	if f.strings != nil {
		b, err := locale.LoadChain(ctx, f.strings, decl.bundleIDs, lang)
		if err != nil {
			return nil, types.NewError(types.ErrStringsUnavailable, "failed to load skill strings").
				WithCause(err).WithSkill(decl.id)
		}
		bundle = b
	} else {
		bundle = locale.Bundle{}
	}

	slots := make([]*Slot, 0, len(decl.slots))
	for _, sd := range decl.slots {
		slots = append(slots, materialize(sd, bundle))
	}

	logger := f.logger.With(zap.String("skill_id", decl.id))
	handlers := make(map[string]SlotChangeHandler, len(decl.slots))
	for _, sd := range decl.slots {
		if h, ok := decl.handlers[sd.Name]; ok {
			handlers[sd.Name] = h
			continue
		}
		handlers[sd.Name] = defaultHandler(decl.behavior)
	}

	return &Instance{
		decl:        decl,
		lang:        lang,
		strings:     bundle,
		slots:       NewSlotsInFlight(decl.confirmation, slots...),
		handlers:    handlers,
		contextPath: f.contextPath,
		logger:      logger,
	}, nil
}

func materialize(sd SlotDecl, bundle locale.Bundle) *Slot {
	promptKey := sd.PromptKey
	if promptKey == "" {
		promptKey = sd.Name + ".prompt"
	}
	errKey := sd.ErrorTemplateKey
	if errKey == "" {
		errKey = sd.Name + ".errorTemplate"
	}
	return &Slot{
		Name:          sd.Name,
		Type:          sd.Type,
		Hidden:        sd.Hidden,
		Description:   bundle.String(sd.Name + ".description"),
		Prompt:        bundle.String(promptKey),
		ErrorTemplate: bundle.String(errKey),
	}
}

func defaultHandler(behavior any) SlotChangeHandler {
	if d, ok := behavior.(DefaultSlotChanger); ok {
		return d.DefaultSlotChange
	}
	return logSlotChange
}

// logSlotChange is the engine's default handler. The incoming value was
// already copied onto the outgoing slot.
func logSlotChange(_ context.Context, t *Turn, incoming, _ *Slot) error {
	ev := ""
	if incoming.Event != nil {
		ev = string(incoming.Event.Type)
	}
	t.Logger().Debug("slot changed",
		zap.String("slot", incoming.Name),
		zap.String("event", ev),
		zap.Any("value", incoming.Normalized()))
	return nil
}

// Declaration returns the declaration the instance was built from.
func (i *Instance) Declaration() *Declaration { return i.decl }

// Slots returns a copy of the initial slots in flight.
func (i *Instance) Slots() *SlotsInFlight { return i.slots.Clone() }

// Strings returns the merged string bundle.
func (i *Instance) Strings() locale.Bundle { return i.strings }
