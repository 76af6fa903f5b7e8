package context

import (
	"context"

	"wasteboard/models"
)

type sessionKey struct{}

func NewContextWithSession(ctx context.Context, session models.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

func GetSessionFromContext(ctx context.Context) (models.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(models.Session)
	return s, ok
}

// ActorFromContext returns the authorization subject of the request session.
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	s, ok := GetSessionFromContext(ctx)
	if !ok {
		return models.Actor{}, false
	}
	return s.Actor(), true
}
