package board

import (
	"context"
	"errors"
	"sort"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/tabledesk/orderboard/internal/adapter/backend"
	"github.com/tabledesk/orderboard/internal/adapter/logger"
	"github.com/tabledesk/orderboard/internal/app/sync"
	"github.com/tabledesk/orderboard/internal/domain"
	"github.com/tabledesk/orderboard/internal/interfaces"
)

var (
	ErrUnknownSession    = errors.New("unknown session")
	ErrOrderNotFound     = errors.New("order not found in current snapshot")
	ErrNoActionAvailable = errors.New("no action available for this order")
	ErrRoleNotAllowed    = errors.New("role is not allowed to perform this operation")
)

// Session is one display client's scope: a role, a confirmation gate, and
// the key under which its ephemeral annotations live.
type Session struct {
	ID        string      `json:"id"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

type session struct {
	info Session
	gate *Gate
}

// ActionResult reports what happened to a requested transition: either it
// went straight through, or a confirmation is now pending under Token.
type ActionResult struct {
	Submitted      bool          `json:"submitted"`
	Token          string        `json:"confirmation_token,omitempty"`
	Target         domain.Status `json:"target"`
	RequiresReason bool          `json:"requires_reason,omitempty"`
}

// Service composes the snapshot, the status translator, the transition
// policy, and the annotation store into role-scoped board views, and owns
// the per-session confirmation gates.
type Service struct {
	engine      *sync.Engine
	annotations interfaces.AnnotationStore
	submitter   Submitter
	logger      logger.Logger

	mu       stdsync.Mutex
	sessions map[string]*session
}

func NewService(engine *sync.Engine, annotations interfaces.AnnotationStore, submitter Submitter, lgr logger.Logger) *Service {
	return &Service{
		engine:      engine,
		annotations: annotations,
		submitter:   submitter,
		logger:      lgr,
		sessions:    make(map[string]*session),
	}
}

func (s *Service) CreateSession(role domain.Role) Session {
	sess := &session{
		info: Session{
			ID:        uuid.NewString(),
			Role:      role,
			CreatedAt: time.Now(),
		},
		gate: NewGate(s.submitter),
	}

	s.mu.Lock()
	s.sessions[sess.info.ID] = sess
	s.mu.Unlock()

	s.logger.Info("session_created", "Display session opened", sess.info.ID, map[string]interface{}{
		"role": string(role),
	})
	return sess.info
}

func (s *Service) EndSession(sessionID string) error {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrUnknownSession
	}
	return s.annotations.EndSession(sessionID)
}

func (s *Service) lookup(sessionID string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}
	return sess, nil
}

// Board renders the current snapshot for the session's role. A sync error
// rides along with the last-good data instead of replacing it.
func (s *Service) Board(sessionID string) (*interfaces.BoardView, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return s.BoardForRole(sess.info.Role, sessionID), nil
}

// BoardForRole renders a board without a session, used by the WebSocket
// hub's broadcasts where annotations are re-merged client-side per session.
func (s *Service) BoardForRole(role domain.Role, sessionID string) *interfaces.BoardView {
	state := s.engine.State()

	view := &interfaces.BoardView{
		Role:          role,
		LastRefreshed: state.LastRefreshed,
		Stale:         state.Stale,
		Paused:        state.Paused,
	}
	if state.LastError != nil {
		view.SyncError = state.LastError.Error()
		view.Retryable = backend.IsRetryable(state.LastError)
	}

	snap, ok := s.engine.Snapshot()
	if !ok {
		view.Columns = emptyColumns(role)
		return view
	}
	view.Version = snap.Version

	columns := domain.BoardColumns(role)
	view.Columns = make([]interfaces.ColumnView, len(columns))
	for i, col := range columns {
		view.Columns[i] = interfaces.ColumnView{Key: col.Key, Cards: []interfaces.CardView{}}
		for _, status := range col.Statuses {
			for _, order := range snap.Orders {
				if order.Status != status {
					continue
				}
				view.Columns[i].Cards = append(view.Columns[i].Cards, s.card(role, sessionID, order))
			}
		}
		sort.SliceStable(view.Columns[i].Cards, func(a, b int) bool {
			return view.Columns[i].Cards[a].CreatedAt.Before(view.Columns[i].Cards[b].CreatedAt)
		})
	}

	return view
}

func emptyColumns(role domain.Role) []interfaces.ColumnView {
	columns := domain.BoardColumns(role)
	views := make([]interfaces.ColumnView, len(columns))
	for i, col := range columns {
		views[i] = interfaces.ColumnView{Key: col.Key, Cards: []interfaces.CardView{}}
	}
	return views
}

func (s *Service) card(role domain.Role, sessionID string, order domain.Order) interfaces.CardView {
	pres := domain.Present(order.Status)
	card := interfaces.CardView{
		OrderID:            order.ID,
		Number:             order.Number,
		TableName:          order.TableName,
		Status:             string(order.Status),
		StatusLabel:        pres.Label,
		StatusColor:        pres.Color,
		Subtotal:           order.Subtotal,
		Tax:                order.Tax,
		Discount:           order.Discount,
		DeliveryCharge:     order.DeliveryCharge,
		Total:              order.Total,
		Notes:              order.Notes,
		CancellationReason: order.CancellationReason,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}

	var marked map[string]bool
	if sessionID != "" {
		ids, err := s.annotations.Marked(sessionID, order.ID)
		if err == nil && len(ids) > 0 {
			marked = make(map[string]bool, len(ids))
			for _, id := range ids {
				marked[id] = true
			}
		}
	}

	card.Items = make([]interfaces.ItemView, len(order.Items))
	for i, item := range order.Items {
		card.Items[i] = interfaces.ItemView{
			ID:           item.ID,
			Name:         item.Name,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			Subtotal:     item.Subtotal,
			Instructions: item.Instructions,
			Prepared:     marked[item.ID],
		}
	}

	if action, ok := domain.NextAction(role, order.Status); ok {
		card.NextAction = &interfaces.ActionView{
			Target:               string(action.Target),
			Label:                domain.Present(action.Target).Label,
			RequiresConfirmation: action.RequiresConfirmation,
		}
	}
	_, card.CanCancel = domain.CancelAction(order.Status)

	return card
}

// RequestAction drives the single legal next step for the session's role
// on one order. Non-destructive steps go straight to the backend; the
// rest open a pending confirmation.
func (s *Service) RequestAction(ctx context.Context, sessionID, orderID string) (*ActionResult, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	order, err := s.orderFromSnapshot(orderID)
	if err != nil {
		return nil, err
	}

	action, ok := domain.NextAction(sess.info.Role, order.Status)
	if !ok {
		return nil, ErrNoActionAvailable
	}

	if !action.RequiresConfirmation {
		if err := s.submitter.SubmitTransition(ctx, orderID, action.Target, sess.info.Role); err != nil {
			return nil, err
		}
		return &ActionResult{Submitted: true, Target: action.Target}, nil
	}

	intent := sess.gate.Request(orderID, sess.info.Role, action, "")
	return &ActionResult{
		Token:  intent.Token,
		Target: action.Target,
	}, nil
}

// RequestCancellation opens a confirmation for cancelling one order. The
// reason may be empty here; the gate will demand a second confirmation
// before letting an empty reason through.
func (s *Service) RequestCancellation(sessionID, orderID, reason string) (*ActionResult, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	order, err := s.orderFromSnapshot(orderID)
	if err != nil {
		return nil, err
	}

	action, ok := domain.CancelAction(order.Status)
	if !ok {
		return nil, ErrNoActionAvailable
	}

	intent := sess.gate.Request(orderID, sess.info.Role, action, reason)
	return &ActionResult{
		Token:          intent.Token,
		Target:         action.Target,
		RequiresReason: true,
	}, nil
}

// RequestAdminStatus lets an admin set any status directly on a
// non-terminal order. Terminal targets still pass through the gate.
func (s *Service) RequestAdminStatus(ctx context.Context, sessionID, orderID string, target domain.Status) (*ActionResult, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.info.Role != domain.RoleAdmin {
		return nil, ErrRoleNotAllowed
	}

	order, err := s.orderFromSnapshot(orderID)
	if err != nil {
		return nil, err
	}

	var action *domain.Action
	for _, a := range domain.AdminTargets(order.Status) {
		if a.Target == target {
			found := a
			action = &found
			break
		}
	}
	if action == nil {
		return nil, ErrNoActionAvailable
	}

	if !action.RequiresConfirmation {
		if err := s.submitter.SubmitTransition(ctx, orderID, action.Target, sess.info.Role); err != nil {
			return nil, err
		}
		return &ActionResult{Submitted: true, Target: action.Target}, nil
	}

	intent := sess.gate.Request(orderID, sess.info.Role, *action, "")
	return &ActionResult{
		Token:          intent.Token,
		Target:         action.Target,
		RequiresReason: action.RequiresReason,
	}, nil
}

func (s *Service) Confirm(ctx context.Context, sessionID, token string) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	return sess.gate.Confirm(ctx, token)
}

func (s *Service) UpdateReason(sessionID, token, reason string) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	return sess.gate.UpdateReason(token, reason)
}

func (s *Service) Dismiss(sessionID, token string) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	return sess.gate.Dismiss(token)
}

// ToggleItemPrepared flips the session-local prepared mark on one item.
// This never reaches the backend.
func (s *Service) ToggleItemPrepared(sessionID, orderID, itemID string) (bool, error) {
	if _, err := s.lookup(sessionID); err != nil {
		return false, err
	}
	return s.annotations.Toggle(sessionID, orderID, itemID)
}

func (s *Service) orderFromSnapshot(orderID string) (*domain.Order, error) {
	snap, ok := s.engine.Snapshot()
	if !ok {
		return nil, ErrOrderNotFound
	}
	order := snap.OrderByID(orderID)
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}
