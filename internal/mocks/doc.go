// Package mocks provides shared test doubles for the service interfaces.
//
// Small interfaces (JWTService, PasswordHasher) use function fields with
// default return values:
//
//	jwtService := &mocks.MockJWTService{
//	    ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
//	        return &auth.Claims{UserID: userID}, nil
//	    },
//	}
//
// The service interfaces consumed by HTTP handlers embed testify's mock.Mock
// so tests can set expectations and assert calls:
//
//	tasks := new(mocks.MockTaskService)
//	tasks.On("Get", mock.Anything, principal, taskID).Return(task, nil)
package mocks
