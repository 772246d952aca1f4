package blobstore

import (
	"testing"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/contracttest"
	blobstoreport "github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/blobstore"
)

func TestContract_BlobStore(t *testing.T) {
	contracttest.RunBlobStore(t, func(t *testing.T) (blobstoreport.Store, func()) {
		t.Helper()
		return NewStore(), nil
	})
}
