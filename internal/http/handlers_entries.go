package http

import (
	"net/http"

	"presupuesto/internal/core"
	"presupuesto/internal/log"
)

// entryPath holds the month, kind and id named by an entry URL.
type entryPath struct {
	month core.MonthKey
	kind  core.Kind
	id    int64
}

// parseEntryPath reads {month} and {kind}, and {id} when withID is set.
func parseEntryPath(r *http.Request, withID bool) (entryPath, error) {
	var (
		p   entryPath
		err error
	)
	if p.month, err = pathMonth(r); err != nil {
		return p, err
	}
	if p.kind, err = pathKind(r); err != nil {
		return p, err
	}
	if withID {
		if p.id, err = pathID(r); err != nil {
			return p, err
		}
	}
	return p, nil
}

// readBody parses the entry form of r.
func readBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	ep, err := parseEntryPath(r, false)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}

	var created any
	switch {
	case ep.kind.IsMovement():
		created, err = s.ledger.AddMovement(r.Context(), ep.month, ep.kind, body.MovementInput())
	case ep.kind.IsDebt():
		created, err = s.ledger.AddDebt(r.Context(), ep.month, ep.kind, body.DebtInput())
	default:
		created, err = s.ledger.AddGoal(r.Context(), ep.month, body.GoalInput())
	}
	if err != nil {
		s.logRejected(r, ep, log.OpCreate, err)
		errorResponse(err).Write(w)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(created).Write(w)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	ep, err := parseEntryPath(r, true)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}

	var updated any
	switch {
	case ep.kind.IsMovement():
		updated, err = s.ledger.UpdateMovement(r.Context(), ep.month, ep.kind, ep.id, body.MovementInput())
	case ep.kind.IsDebt():
		updated, err = s.ledger.UpdateDebt(r.Context(), ep.month, ep.kind, ep.id, body.DebtInput())
	default:
		updated, err = s.ledger.UpdateGoal(r.Context(), ep.month, ep.id, body.GoalInput())
	}
	if err != nil {
		s.logRejected(r, ep, log.OpUpdate, err)
		errorResponse(err).Write(w)
		return
	}
	NewResponse().JSON(updated).Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	ep, err := parseEntryPath(r, true)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	if err := s.ledger.Delete(r.Context(), ep.month, ep.kind, ep.id); err != nil {
		s.logRejected(r, ep, log.OpDelete, err)
		errorResponse(err).Write(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	id, err := pathID(r)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}

	goal, err := s.ledger.Deposit(r.Context(), month, id, body.Get("monto"))
	if err != nil {
		s.logRejected(r, entryPath{month: month, kind: core.KindGoals, id: id}, log.OpDeposit, err)
		errorResponse(err).Write(w)
		return
	}
	NewResponse().JSON(goal).Write(w)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	ep, err := parseEntryPath(r, true)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	rows, err := s.ledger.Schedule(r.Context(), ep.month, ep.kind, ep.id)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	NewResponse().JSON(rows).Write(w)
}

// logRejected records a write the ledger refused. Validation failures are
// expected, so they log at debug.
func (s *Server) logRejected(r *http.Request, ep entryPath, op string, err error) {
	resp := errorResponse(err)
	f := log.NewFields().WithEntry(ep.month.String(), string(ep.kind), ep.id).WithOperation(op).WithError(err)
	if resp.statusCode >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Ledger write failed", f.ToSlice()...)
		return
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Ledger write rejected", f.ToSlice()...)
}
