// Package gridfs stores uploaded media in a MongoDB GridFS bucket.
package gridfs

import (
	"bytes"
	"context"
	"io"
	"strings"

	"FlashChat/module/chat/store"
	"FlashChat/tools/errs"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	_ store.MediaStore  = (*MediaStore)(nil)
	_ store.MediaReader = (*MediaStore)(nil)
)

const DefaultBucket = "media"

// MediaStore URL 形如 <baseURL>/<objectID hex>
type MediaStore struct {
	bucket  *gridfs.Bucket
	baseURL string
}

func New(db *mongo.Database, bucketName, baseURL string) (*MediaStore, error) {
	if bucketName == "" {
		bucketName = DefaultBucket
	}
	b, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, errs.ErrStore.WrapCause(errors.Wrap(err, "gridfs"), "open bucket", "bucket", bucketName)
	}
	return &MediaStore{bucket: b, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

type fileMeta struct {
	ContentType string            `bson:"content_type"`
	Extra       map[string]string `bson:"extra,omitempty"`
}

func (m *MediaStore) Upload(ctx context.Context, data []byte, contentType string, meta map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errs.ErrUpload.WrapCause(err, "upload cancelled")
	}
	name := primitive.NewObjectID().Hex()
	opts := options.GridFSUpload().SetMetadata(fileMeta{ContentType: contentType, Extra: meta})
	id, err := m.bucket.UploadFromStream(name, bytes.NewReader(data), opts)
	if err != nil {
		return "", errs.ErrUpload.WrapCause(errors.Wrap(err, "gridfs"), "upload", "size", len(data))
	}
	return m.URLFor(id.Hex()), nil
}

// Delete 文件不存在时不报错
func (m *MediaStore) Delete(ctx context.Context, url string) error {
	oid, ok := m.parse(url)
	if !ok {
		return nil
	}
	err := m.bucket.Delete(oid)
	if err == nil || errors.Is(err, gridfs.ErrFileNotFound) {
		return nil
	}
	return errs.ErrStore.WrapCause(errors.Wrap(err, "gridfs"), "delete media", "id", oid.Hex())
}

// Open 读取整个文件，返回内容类型
func (m *MediaStore) Open(ctx context.Context, id string) ([]byte, string, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, "", errs.ErrNotFound.WrapMsg("media not found", "id", id)
	}
	ds, err := m.bucket.OpenDownloadStream(oid)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, "", errs.ErrNotFound.WrapMsg("media not found", "id", id)
	}
	if err != nil {
		return nil, "", errs.ErrStore.WrapCause(errors.Wrap(err, "gridfs"), "open media", "id", id)
	}
	defer ds.Close()

	data, err := io.ReadAll(ds)
	if err != nil {
		return nil, "", errs.ErrStore.WrapCause(errors.Wrap(err, "gridfs"), "read media", "id", id)
	}
	var meta fileMeta
	if raw := ds.GetFile().Metadata; len(raw) > 0 {
		_ = bson.Unmarshal(raw, &meta)
	}
	return data, meta.ContentType, nil
}

func (m *MediaStore) URLFor(id string) string {
	return m.baseURL + "/" + id
}

func (m *MediaStore) parse(url string) (primitive.ObjectID, bool) {
	if !strings.HasPrefix(url, m.baseURL+"/") {
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(strings.TrimPrefix(url, m.baseURL+"/"))
	return oid, err == nil
}
