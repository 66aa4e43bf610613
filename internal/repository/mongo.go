package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/dharsanguruparan/teradrop/internal/model"
)

// FilesCollection is the collection holding file records.
const FilesCollection = "files"

// fileDocument is the BSON shape of a FileRecord.
type fileDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	OriginalName string             `bson:"originalName"`
	Filename     string             `bson:"filename"`
	Mimetype     string             `bson:"mimetype"`
	Size         int64              `bson:"size"`
	UploadDate   time.Time          `bson:"uploadDate"`
	CustomName   string             `bson:"customName"`
}

func (d fileDocument) record() model.FileRecord {
	return model.FileRecord{
		ID:           d.ID.Hex(),
		OriginalName: d.OriginalName,
		Filename:     d.Filename,
		Mimetype:     d.Mimetype,
		Size:         d.Size,
		UploadDate:   d.UploadDate.UTC(),
		CustomName:   d.CustomName,
	}
}

// MongoRepository stores records as documents in a MongoDB collection.
type MongoRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

// NewMongoRepository constructs a repository over db's files collection.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{db: db, coll: db.Collection(FilesCollection)}
}

// EnsureIndexes creates the lookup and ordering indexes if they are missing.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "customName", Value: 1}, {Key: "uploadDate", Value: 1}}},
		{Keys: bson.D{{Key: "uploadDate", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

// Create inserts rec. UploadDate is truncated to milliseconds, the precision
// BSON dates keep.
func (r *MongoRepository) Create(ctx context.Context, rec *model.FileRecord) error {
	if rec.UploadDate.IsZero() {
		rec.UploadDate = time.Now().UTC()
	}
	rec.UploadDate = rec.UploadDate.Truncate(time.Millisecond)
	doc := fileDocument{
		ID:           primitive.NewObjectID(),
		OriginalName: rec.OriginalName,
		Filename:     rec.Filename,
		Mimetype:     rec.Mimetype,
		Size:         rec.Size,
		UploadDate:   rec.UploadDate,
		CustomName:   rec.CustomName,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert file document: %w", err)
	}
	rec.ID = doc.ID.Hex()
	return nil
}

// List returns all records newest first.
func (r *MongoRepository) List(ctx context.Context) ([]model.FileRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uploadDate", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find file documents: %w", err)
	}
	var docs []fileDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode file documents: %w", err)
	}
	records := make([]model.FileRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.record())
	}
	return records, nil
}

// FindByCustomName returns the earliest document with the given custom name.
func (r *MongoRepository) FindByCustomName(ctx context.Context, name string) (*model.FileRecord, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "uploadDate", Value: 1}, {Key: "_id", Value: 1}})
	var doc fileDocument
	err := r.coll.FindOne(ctx, bson.D{{Key: "customName", Value: name}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find file document: %w", err)
	}
	rec := doc.record()
	return &rec, nil
}

// Ping checks connectivity against the primary.
func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, readpref.Primary())
}
