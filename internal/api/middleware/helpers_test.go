package middleware

import (
	"context"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

func contextWithPrincipal(principal domain.Principal) context.Context {
	return shared.WithPrincipal(context.Background(), principal)
}
