package fishdata

import (
	"sanfish/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Actor is the authenticated principal resolved by the HTTP layer.
type Actor struct {
	ID   primitive.ObjectID
	Role models.Role
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

type Action string

const (
	ActionView           Action = "view"
	ActionUpdate         Action = "update"
	ActionDelete         Action = "delete"
	ActionAppendDiseases Action = "add diseases to"
	ActionManageAnalyses Action = "manage analyses of"
	ActionManageDiseases Action = "manage diseases of"
)

// CanAccess is the owner-or-admin rule. It is the same for every action.
func CanAccess(actor Actor, rec models.FishRecord, _ Action) bool {
	if actor.IsAdmin() {
		return true
	}
	return !actor.ID.IsZero() && actor.ID == rec.OwnerID
}

// OwnerScope is the owner filter applied at query time: nil for admins,
// the actor's own id for everyone else.
func OwnerScope(actor Actor) *primitive.ObjectID {
	if actor.IsAdmin() {
		return nil
	}
	id := actor.ID
	return &id
}

func (s *Service) authorize(actor Actor, rec models.FishRecord, action Action) error {
	if !CanAccess(actor, rec, action) {
		s.log.Info("access denied",
			zap.String("actor_id", actor.ID.Hex()),
			zap.String("role", string(actor.Role)),
			zap.String("fish_id", rec.ID.Hex()),
			zap.String("action", string(action)))
		return forbidden(action)
	}
	return nil
}
