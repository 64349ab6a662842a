package skill

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/BaSui01/convskills/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var providerIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidProviderID reports whether id is usable as a provider id.
func ValidProviderID(id string) bool {
	return providerIDPattern.MatchString(id)
}

// SkillInfo is the configured, externally visible metadata of a skill.
type SkillInfo struct {
	ID          string
	Name        string
	Description string
	Metadata    map[string]any
}

// SkillSummary is one entry of the skill listing.
type SkillSummary struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Created     time.Time      `json:"created"`
	Modified    time.Time      `json:"modified"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// SlotSummary describes one declared input slot.
type SlotSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        SlotType `json:"type"`
}

// SkillDetail is the projection of one skill and its input slots.
type SkillDetail struct {
	SkillSummary
	Input struct {
		Slots []SlotSummary `json:"slots"`
	} `json:"input"`
}

// Observer receives turn outcomes, e.g. for metrics.
type Observer interface {
	ObserveTurn(skillID, outcome string, duration time.Duration)
	ObserveLateral(fromSkillID, toSkillID string)
}

type nopObserver struct{}

func (nopObserver) ObserveTurn(string, string, time.Duration) {}
func (nopObserver) ObserveLateral(string, string)             {}

// Outcome labels reported to the Observer.
const (
	OutcomeInProgress = "in_progress"
	OutcomeError      = "error"
)

// Outcome returns the label for a response's resolver.
func Outcome(resp *SkillResponse) string {
	if resp == nil || resp.Resolver == nil {
		return OutcomeInProgress
	}
	return string(resp.Resolver.Type)
}

// Dispatcher maps (providerId, skillId) to a fresh skill instance and runs
// one turn. It also serves lateral delegations between skills.
type Dispatcher struct {
	providerID string
	skills     []SkillInfo
	exposed    map[string]SkillInfo
	registry   *Registry
	factory    *Factory
	observer   Observer
	tracer     trace.Tracer
	now        func() time.Time
	logger     *zap.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithObserver reports turn outcomes to o.
func WithObserver(o Observer) DispatcherOption {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithTracer overrides the tracer used for dispatch spans.
func WithTracer(t trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) { d.tracer = t }
}

// WithClock overrides the clock used for listing timestamps.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher for one provider id and the skills it exposes.
func NewDispatcher(providerID string, skills []SkillInfo, registry *Registry, factory *Factory, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		providerID: providerID,
		skills:     append([]SkillInfo(nil), skills...),
		exposed:    make(map[string]SkillInfo, len(skills)),
		registry:   registry,
		factory:    factory,
		observer:   nopObserver{},
		tracer:     otel.Tracer("github.com/BaSui01/convskills/skill"),
		now:        time.Now,
		logger:     logger.With(zap.String("component", "skill_dispatcher")),
	}
	for _, s := range skills {
		d.exposed[s.ID] = s
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ProviderID returns the configured provider id.
func (d *Dispatcher) ProviderID() string { return d.providerID }

// Dispatch runs one turn of skillID.
func (d *Dispatcher) Dispatch(ctx context.Context, providerID, skillID string, req *TurnRequest) (*SkillResponse, error) {
	ctx, span := d.tracer.Start(ctx, "skill.dispatch", trace.WithAttributes(
		attribute.String("skill.provider_id", providerID),
		attribute.String("skill.id", skillID),
	))
	defer span.End()

	if req == nil {
		req = &TurnRequest{}
	}
	start := time.Now()
	resp, err := d.dispatch(ctx, providerID, skillID, req)
	outcome := Outcome(resp)
	if err != nil {
		outcome = OutcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("skill.outcome", outcome))
	label := skillID
	if _, ok := d.exposed[skillID]; !ok {
		label = "unknown"
	}
	d.observer.ObserveTurn(label, outcome, time.Since(start))
	return resp, err
}

func (d *Dispatcher) dispatch(ctx context.Context, providerID, skillID string, req *TurnRequest) (*SkillResponse, error) {
	if err := d.checkProvider(providerID); err != nil {
		return nil, err
	}
	inst, err := d.instance(ctx, skillID, req.Language())
	if err != nil {
		return nil, err
	}

	ctx = types.WithProviderID(ctx, providerID)
	d.logger.Debug("orchestrating turn",
		zap.String("skill_id", skillID),
		zap.String("request_id", requestID(ctx)),
		zap.Int("incoming_slots", len(req.Slots)),
		zap.Bool("confirmation_event", req.ConfirmationEvent != nil))

	return inst.Orchestrate(types.WithSkillID(ctx, skillID), req)
}

func requestID(ctx context.Context) string {
	id, _ := types.RequestID(ctx)
	return id
}

// RunLateral runs skillID on the caller's turn request and merges the
// sub-response into the caller's response: variable mutations, resolver,
// non-slot items and the sub-skill's slots in flight, which replace the
// caller's.
func (d *Dispatcher) RunLateral(ctx context.Context, t *Turn, skillID string, extra map[string]any) error {
	ctx, span := d.tracer.Start(ctx, "skill.lateral", trace.WithAttributes(
		attribute.String("skill.from", t.skillID),
		attribute.String("skill.id", skillID),
	))
	defer span.End()

	inst, err := d.instance(ctx, skillID, t.lang)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	sub, err := inst.run(types.WithSkillID(ctx, skillID), t.request, extra)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	t.response.Absorb(sub)
	d.observer.ObserveLateral(t.skillID, skillID)
	d.logger.Debug("lateral skill merged",
		zap.String("from", t.skillID),
		zap.String("to", skillID),
		zap.String("outcome", Outcome(sub)))
	return nil
}

// ListSkills projects the configured skills.
func (d *Dispatcher) ListSkills(providerID string) ([]SkillSummary, error) {
	if err := d.checkProvider(providerID); err != nil {
		return nil, err
	}
	ts := d.now().UTC()
	out := make([]SkillSummary, 0, len(d.skills))
	for _, s := range d.skills {
		out = append(out, d.summary(s, ts))
	}
	return out, nil
}

// GetSkill projects one skill with its declared input slots.
func (d *Dispatcher) GetSkill(ctx context.Context, providerID, skillID, lang string) (*SkillDetail, error) {
	if err := d.checkProvider(providerID); err != nil {
		return nil, err
	}
	inst, err := d.instance(ctx, skillID, lang)
	if err != nil {
		return nil, err
	}
	detail := &SkillDetail{SkillSummary: d.summary(d.exposed[skillID], d.now().UTC())}
	detail.Input.Slots = make([]SlotSummary, 0, len(inst.slots.Slots))
	for _, s := range inst.slots.Slots {
		detail.Input.Slots = append(detail.Input.Slots, SlotSummary{Name: s.Name, Description: s.Description, Type: s.Type})
	}
	return detail, nil
}

func (d *Dispatcher) summary(s SkillInfo, ts time.Time) SkillSummary {
	return SkillSummary{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Created:     ts,
		Modified:    ts,
		Metadata:    s.Metadata,
	}
}

func (d *Dispatcher) checkProvider(providerID string) error {
	if providerID == "" || !ValidProviderID(providerID) || providerID != d.providerID {
		return types.NewError(types.ErrInvalidProvider, fmt.Sprintf("Invalid provider ID %s", providerID))
	}
	return nil
}

func (d *Dispatcher) instance(ctx context.Context, skillID, lang string) (*Instance, error) {
	if skillID == "" {
		return nil, types.NewError(types.ErrSkillNotFound, "skill ID is empty")
	}
	if _, ok := d.exposed[skillID]; !ok {
		return nil, types.NewError(types.ErrSkillNotFound, fmt.Sprintf("Invalid skill ID %s", skillID)).WithSkill(skillID)
	}
	decl, ok := d.registry.Lookup(skillID)
	if !ok {
		return nil, types.NewError(types.ErrSkillNotFound, fmt.Sprintf("skill %s has no registered implementation", skillID)).WithSkill(skillID)
	}
	inst, err := d.factory.New(ctx, decl, lang)
	if err != nil {
		return nil, err
	}
	inst.lateral = d
	return inst, nil
}
