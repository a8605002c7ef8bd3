package mongodb

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskflow-api/internal/store"
	"go.mongodb.org/mongo-driver/mongo"
)

// MapError translates a driver error into the store error vocabulary while
// keeping the original error in the chain.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}
