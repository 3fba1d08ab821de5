package triage

import (
	"context"
	"errors"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/navigator/internal/extract"
)

// TurnResult is what one processed turn hands back to the conversational
// front end.
type TurnResult struct {
	State        *CaseState   `json:"state"`
	Phase        CasePhase    `json:"phase"`
	Question     string       `json:"question,omitempty"`
	Completeness Completeness `json:"completeness"`
	Disposition  *Disposition `json:"disposition,omitempty"`
}

// Service is the business boundary for triage operations. It owns the case
// lifecycle: ID issue, per-turn merge and transition, terminal routing, and
// the report emitted when a case resolves.
type Service struct {
	store    Store
	ids      IDSource
	engine   *Engine
	reporter Reporter
	phraser  Phraser
	metrics  *Metrics
	logger   log.Logger
}

// NewService creates a new triage service. reporter, phraser and metrics may
// be nil; the corresponding side effects are skipped.
func NewService(store Store, ids IDSource, engine *Engine, reporter Reporter, phraser Phraser, metrics *Metrics, logger log.Logger) *Service {
	return &Service{
		store:    store,
		ids:      ids,
		engine:   engine,
		reporter: reporter,
		phraser:  phraser,
		metrics:  metrics,
		logger:   logger,
	}
}

// Open creates a case from the first utterance: issues a sequential ID, runs
// the classification cascade, merges whatever the first utterance already
// states, and returns the first question to ask. An ID-generation failure is
// fatal for the attempt and propagates untouched.
func (s *Service) Open(ctx context.Context, utterance string) (*TurnResult, error) {
	id, err := s.ids.Next(ctx)
	if err != nil {
		return nil, err
	}

	cls := s.engine.Classify(ctx, utterance)
	now := time.Now()
	state := &CaseState{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Path:      cls.Path,
		Branch:    cls.Branch,
		Phase:     PhaseIntentDetection,
		Meta: CaseMetadata{
			Urgency:      cls.Urgency,
			Confidence:   cls.Confidence(),
			FallbackUsed: cls.Fallback(),
		},
		Answered: map[CasePhase]bool{},
		Turns:    1,
	}

	L := s.logger.With("case_id", id, "path", string(cls.Path), "rule", cls.Rule)
	L.Info(ctx, "case opened", "urgency", cls.Urgency, "branch", string(cls.Branch))
	if s.metrics != nil {
		s.metrics.CasesTotal.WithLabelValues(string(cls.Path), cls.Rule).Inc()
	}

	if cls.Branch == BranchInformationOnly {
		state.Disposition = s.engine.InfoDisposition(state, utterance)
		if err := s.store.Save(ctx, state); err != nil {
			return nil, err
		}
		s.emit(ctx, state, false)
		return s.result(ctx, state), nil
	}

	return s.advanceTurn(ctx, L, state, utterance)
}

// Turn merges one utterance into an existing case and computes the next
// phase. A ValidationError leaves the stored state untouched; the caller
// re-prompts with the same case ID.
func (s *Service) Turn(ctx context.Context, id, utterance string) (*TurnResult, error) {
	state, ok, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &NotFoundError{CaseID: id}
	}
	if state.Resolved() {
		return nil, &InvariantError{CaseID: id, Reason: "case already resolved"}
	}

	state.Turns++
	L := s.logger.With("case_id", id, "turn", state.Turns, "phase", string(state.Phase))
	return s.advanceTurn(ctx, L, state, utterance)
}

// advanceTurn is the shared merge -> transition -> route pipeline.
func (s *Service) advanceTurn(ctx context.Context, L log.Logger, state *CaseState, utterance string) (*TurnResult, error) {
	start := time.Now()

	if h := s.engine.Hostility(utterance); h > state.Meta.Hostility {
		state.Meta.Hostility = h
	}
	// Area is last-write-wins metadata; an utterance with no clinical hits
	// keeps the previous tag rather than blanking it.
	if area := s.engine.MacroArea(utterance); area != "" {
		state.Meta.Area = area
	}

	if state.Phase == PhaseConsent {
		if granted, answered := extract.Consent(utterance); answered {
			state.Clinical.Consent = &granted
			if !granted {
				// A refusal ends triage: no personal data may be collected,
				// so the case resolves to a generic information answer.
				state.Branch = BranchInformationOnly
				state.Disposition = s.engine.InfoDisposition(state, "consenso al trattamento dei dati negato")
				if err := s.store.Save(ctx, state); err != nil {
					return nil, err
				}
				s.emit(ctx, state, false)
				L.Info(ctx, "consent refused, case closed")
				return s.result(ctx, state), nil
			}
		}
	}
	if state.Phase == PhaseDemographics && state.Patient.Sex == "" {
		if sex := extract.Sex(utterance); sex != "" {
			state.Patient.Sex = sex
			state.SlotLog = append(state.SlotLog, SlotEvent{
				Turn: state.Turns, Slot: "sex", Value: sex, At: time.Now(),
			})
		}
	}

	unknownBefore := s.engine.UnknownCount()
	extracted, err := s.engine.Extract(ctx, utterance)
	if err != nil {
		var verr *extract.ValidationError
		if errors.As(err, &verr) && s.metrics != nil {
			s.metrics.ValidationErrors.WithLabelValues(verr.Slot).Inc()
		}
		return nil, err
	}
	unknownDelta := s.engine.UnknownCount() - unknownBefore
	if s.metrics != nil && unknownDelta > 0 {
		s.metrics.UnknownTermsTotal.Add(float64(unknownDelta))
	}

	merged := Merge(state, extracted, s.engine.DistrictFor)

	// Confidence follows the weakest normalizer tier seen this turn.
	// FallbackUsed is sticky: once an unknown term forced the fallback the
	// flag never clears.
	if unknownDelta > 0 {
		merged.Meta.FallbackUsed = true
	}
	if len(extracted.Symptoms) > 0 {
		conf := 1.0
		for _, sym := range extracted.Symptoms {
			if sym.Confidence < conf {
				conf = sym.Confidence
			}
		}
		merged.Meta.Confidence = conf
	}

	if s.engine.SelfHarm(utterance) {
		merged.Clinical.SelfHarmRisk = true
	}
	RaiseUrgency(merged, s.engine.FlagUrgency(merged))

	merged.Answered[merged.Phase] = true

	next := s.engine.NextPhase(merged)
	if next == PhaseEmergencyOverride && merged.Phase != PhaseEmergencyOverride {
		RaiseUrgency(merged, 5)
		if s.metrics != nil {
			s.metrics.OverridesTotal.Inc()
		}
		L.Warn(ctx, "emergency override", "red_flags", merged.Clinical.RedFlags)
	}
	if err := Advance(merged, next); err != nil {
		return nil, err
	}

	// The override and disposition phases both resolve immediately; an
	// emergency dispatch must not wait for another turn.
	if merged.Phase == PhaseDisposition || merged.Phase == PhaseEmergencyOverride {
		merged.Disposition = s.engine.Route(merged)
		s.observeResolved(merged)
		L.Info(ctx, "case resolved",
			"facility_kind", merged.Disposition.FacilityKind,
			"urgency", merged.Meta.Urgency,
			"turns", merged.Turns,
		)
	}

	merged.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, merged); err != nil {
		return nil, err
	}
	if merged.Resolved() {
		s.emit(ctx, merged, false)
	}

	if s.metrics != nil {
		s.metrics.TurnsTotal.Inc()
		s.metrics.TurnDuration.Observe(time.Since(start).Seconds())
	}
	return s.result(ctx, merged), nil
}

func (s *Service) observeResolved(state *CaseState) {
	if s.metrics == nil {
		return
	}
	s.metrics.DispositionsTotal.WithLabelValues(state.Disposition.FacilityKind).Inc()
	s.metrics.CaseTurns.Observe(float64(state.Turns))
	s.metrics.UrgencyAtResolve.Observe(float64(state.Meta.Urgency))
	s.metrics.CompletenessAtDisp.Observe(float64(CompletenessOf(state).Percent))
}

func (s *Service) result(ctx context.Context, state *CaseState) *TurnResult {
	r := &TurnResult{
		State:        state,
		Phase:        state.Phase,
		Completeness: CompletenessOf(state),
		Disposition:  state.Disposition,
	}
	if s.phraser != nil {
		r.Question = s.phraser.Question(ctx, state)
	}
	return r
}

// emit hands the terminal record to the reporting collaborator. Delivery is
// asynchronous and best-effort; a failure is logged, never surfaced to the
// caller mid-turn.
func (s *Service) emit(ctx context.Context, state *CaseState, abandoned bool) {
	if s.reporter == nil {
		return
	}
	rec := &Record{
		RecordID:  ulid.Make().String(),
		CaseID:    state.ID,
		Timestamp: time.Now(),
		Path:      state.Path,
		Urgency:   state.Meta.Urgency,
		Location:  state.Patient.Location,
		District:  state.Patient.District,
		SBAR:      state.Disposition,
		SlotLog:   state.SlotLog,
		Abandoned: abandoned,
	}
	go func(ctx context.Context) {
		if err := s.reporter.Emit(ctx, rec); err != nil {
			s.logger.Error(ctx, err, "report emit failed", "case_id", rec.CaseID)
		}
	}(context.WithoutCancel(ctx))
}

// Get retrieves a case by ID.
func (s *Service) Get(ctx context.Context, id string) (*CaseState, bool, error) {
	return s.store.Load(ctx, id)
}

// Active lists unresolved cases.
func (s *Service) Active(ctx context.Context) ([]*CaseState, error) {
	return s.store.ListActive(ctx)
}

// Abandon closes a case without a recommendation, emits the abandonment
// record, and removes the state.
func (s *Service) Abandon(ctx context.Context, id string) error {
	state, ok, err := s.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{CaseID: id}
	}
	s.emit(ctx, state, true)
	s.logger.Info(ctx, "case abandoned", "case_id", id, "turns", state.Turns)
	return s.store.Delete(ctx, id)
}

// Cleanup removes cases older than the retention window and reports how many
// went.
func (s *Service) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	n, err := s.store.DeleteOlderThan(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info(ctx, "case cleanup", "removed", n, "retention", retention.String())
	}
	return n, nil
}
