package gridfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseURL(t *testing.T) {
	m := &MediaStore{baseURL: "http://localhost:8080/v1/media"}
	oid := primitive.NewObjectID()

	got, ok := m.parse(m.URLFor(oid.Hex()))
	assert.True(t, ok)
	assert.Equal(t, oid, got)

	_, ok = m.parse("https://elsewhere/" + oid.Hex())
	assert.False(t, ok)
	_, ok = m.parse(m.URLFor("not-hex"))
	assert.False(t, ok)
}

func TestDeleteForeignURLIsNoop(t *testing.T) {
	m := &MediaStore{baseURL: "http://x/media"}
	assert.NoError(t, m.Delete(context.Background(), "s3://bucket/key"))
}
