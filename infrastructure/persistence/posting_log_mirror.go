package persistence

import (
	"context"

	"repurposer/domain/model"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

const postingLogCollection = "posting_logs"

// PostingLogMirror copies posting log rows into MongoDB for cross-tenant
// reporting. A nil client turns every call into a no-op.
type PostingLogMirror struct {
	mongoDb  *mongo.Client
	database string
}

func NewPostingLogMirror(db *mongo.Client, database string) *PostingLogMirror {
	if database == "" {
		database = "repurposer"
	}
	return &PostingLogMirror{mongoDb: db, database: database}
}

func (m *PostingLogMirror) Mirror(ctx context.Context, entry *model.PostingLog) error {
	if m == nil || m.mongoDb == nil || entry == nil {
		return nil
	}
	_, err := m.mongoDb.Database(m.database).Collection(postingLogCollection).InsertOne(ctx, entry)
	return err
}
