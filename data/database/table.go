package database

import "go.mongodb.org/mongo-driver/mongo"

// Table 实体对应的集合名
type Table interface {
	GetTableName() string
}

// Collection 按实体取集合
func Collection(db *mongo.Database, t Table) *mongo.Collection {
	return db.Collection(t.GetTableName())
}
