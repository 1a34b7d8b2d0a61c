package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ldi/planner/internal/tracker"
	"github.com/ldi/planner/pkg/models"
)

// resource wires one item kind to the generic CRUD handlers.
type resource struct {
	s         *Server
	path      string
	kind      models.Kind
	list      func() []models.Record
	get       func(id int) (models.Item, bool)
	create    func(ctx context.Context, r models.Record) (models.Item, bool, error)
	update    func(ctx context.Context, r models.Record) (models.Item, bool, error)
	delete    func(ctx context.Context, id int) (bool, error)
	deleteAll func(ctx context.Context) error
}

func (s *Server) resources() []*resource {
	m := s.manager
	return []*resource{
		{
			s: s, path: "tasks", kind: models.KindTask,
			list: func() []models.Record { return models.NewRecords(m.Tasks()) },
			get:  func(id int) (models.Item, bool) { return present(m.GetTask(id)) },
			create: func(ctx context.Context, r models.Record) (models.Item, bool, error) {
				t, err := r.Task()
				if err != nil {
					return nil, false, badInput(err)
				}
				created, err := m.CreateTask(ctx, t)
				item, ok := present(created)
				return item, ok, err
			},
			update: func(ctx context.Context, r models.Record) (models.Item, bool, error) {
				t, err := r.Task()
				if err != nil {
					return nil, false, badInput(err)
				}
				updated, err := m.UpdateTask(ctx, t)
				item, ok := present(updated)
				return item, ok, err
			},
			delete:    m.DeleteTask,
			deleteAll: m.DeleteAllTasks,
		},
		{
			s: s, path: "epics", kind: models.KindEpic,
			list: func() []models.Record { return models.NewRecords(m.Epics()) },
			get:  func(id int) (models.Item, bool) { return present(m.GetEpic(id)) },
			create: func(ctx context.Context, r models.Record) (models.Item, bool, error) {
				e, err := r.Epic()
				if err != nil {
					return nil, false, badInput(err)
				}
				created, err := m.CreateEpic(ctx, e)
				item, ok := present(created)
				return item, ok, err
			},
			update: func(ctx context.Context, r models.Record) (models.Item, bool, error) {
				e, err := r.Epic()
				if err != nil {
					return nil, false, badInput(err)
				}
				updated, err := m.UpdateEpic(ctx, e)
				item, ok := present(updated)
				return item, ok, err
			},
			delete:    m.DeleteEpic,
			deleteAll: m.DeleteAllEpics,
		},
		{
			s: s, path: "subtasks", kind: models.KindSubtask,
			list: func() []models.Record { return models.NewRecords(m.Subtasks()) },
			get:  func(id int) (models.Item, bool) { return present(m.GetSubtask(id)) },
			create: func(ctx context.Context, r models.Record) (models.Item, bool, error) {
				st, err := r.Subtask()
				if err != nil {
					return nil, false, badInput(err)
				}
				created, err := m.CreateSubtask(ctx, st)
				item, ok := present(created)
				return item, ok, err
			},
			update: func(ctx context.Context, r models.Record) (models.Item, bool, error) {
				st, err := r.Subtask()
				if err != nil {
					return nil, false, badInput(err)
				}
				updated, err := m.UpdateSubtask(ctx, st)
				item, ok := present(updated)
				return item, ok, err
			},
			delete:    m.DeleteSubtask,
			deleteAll: m.DeleteAllSubtasks,
		},
	}
}

// present converts a typed result without turning a nil pointer into a
// non-nil interface.
func present[P interface {
	*T
	models.Item
}, T any](v P) (models.Item, bool) {
	if (*T)(v) == nil {
		return nil, false
	}
	return v, true
}

// errBadInput marks request errors that map to 400.
var errBadInput = errors.New("bad request")

func badInput(err error) error {
	return fmt.Errorf("%w: %v", errBadInput, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tracker.ErrOverlap):
		return http.StatusNotAcceptable
	case errors.Is(err, tracker.ErrInvalidItem), errors.Is(err, errBadInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

func paramID(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadInput, c.Param("id"))
	}
	return id, nil
}

func (r *resource) handleList(c *gin.Context) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.JSON(http.StatusOK, r.list())
}

func (r *resource) handleGet(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		fail(c, err)
		return
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.get(id)
	if !ok {
		notFound(c, fmt.Sprintf("%s %d", r.kind, id))
		return
	}
	c.JSON(http.StatusOK, models.NewRecord(item))
}

// handleSave creates when the body has no id and updates otherwise.
func (r *resource) handleSave(c *gin.Context) {
	var rec models.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		fail(c, badInput(err))
		return
	}
	if rec.Type != "" && rec.Type != r.kind {
		fail(c, fmt.Errorf("%w: type %s sent to /%s", errBadInput, rec.Type, r.path))
		return
	}

	op, status := r.update, http.StatusOK
	if rec.ID == 0 {
		op, status = r.create, http.StatusCreated
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok, err := op(c.Request.Context(), rec)
	if err != nil {
		fail(c, err)
		return
	}
	if !ok {
		notFound(c, string(r.kind))
		return
	}
	c.JSON(status, models.NewRecord(item))
}

func (r *resource) handleDelete(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		fail(c, err)
		return
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ok, err := r.delete(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !ok {
		notFound(c, fmt.Sprintf("%s %d", r.kind, id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (r *resource) handleDeleteAll(c *gin.Context) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.deleteAll(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": r.path})
}

func (s *Server) handleEpicSubtasks(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		fail(c, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, models.NewRecords(s.manager.EpicSubtasks(id)))
}

func (s *Server) handlePrioritized(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, models.ItemRecords(s.manager.Prioritized()))
}

func (s *Server) handleHistory(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, models.ItemRecords(s.manager.History()))
}
