package mongostore

import (
	"context"

	"FlashChat/module/chat/store"
	"FlashChat/tools/safe"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type changeEvent[T any] struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *T `bson:"fullDocument"`
}

func opOf(operationType string) (store.Op, bool) {
	switch operationType {
	case "insert":
		return store.OpAdded, true
	case "update", "replace":
		return store.OpModified, true
	case "delete":
		return store.OpRemoved, true
	}
	return "", false
}

// watch 打开 change stream 并在独立 goroutine 中投递；需要副本集
func watch[T any](ctx context.Context, log *zap.Logger, coll *mongo.Collection, pipeline mongo.Pipeline, h store.Handler[T], onErr store.ErrorHandler) (store.CancelFunc, error) {
	opts := options.ChangeStream().
		SetFullDocument(options.UpdateLookup).
		SetFullDocumentBeforeChange(options.WhenAvailable)
	cs, err := coll.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, wrapErr(err, "open change stream", "coll", coll.Name())
	}

	wctx, cancel := context.WithCancel(context.Background())
	safe.Go("mongostore.watch:"+coll.Name(), func() {
		defer cs.Close(context.Background())
		for cs.Next(wctx) {
			var ev changeEvent[T]
			if err := cs.Decode(&ev); err != nil {
				log.Warn("decode change event", zap.String("coll", coll.Name()), zap.Error(err))
				continue
			}
			op, ok := opOf(ev.OperationType)
			if !ok {
				continue
			}
			// update 之后文档又被删掉时 fullDocument 为空
			if op != store.OpRemoved && ev.FullDocument == nil {
				continue
			}
			h(store.Change[T]{Op: op, ID: ev.DocumentKey.ID, Doc: ev.FullDocument})
		}
		if err := cs.Err(); err != nil && wctx.Err() == nil {
			log.Error("change stream closed", zap.String("coll", coll.Name()), zap.Error(err))
			if onErr != nil {
				onErr(wrapErr(err, "change stream", "coll", coll.Name()))
			}
		}
	})

	// 不等待投递 goroutine 退出，回调里也能安全取消
	return store.OnceCancel(func() error {
		cancel()
		return nil
	}), nil
}
