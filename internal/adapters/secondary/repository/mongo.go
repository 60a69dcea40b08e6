package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/domain"
)

const (
	postsCollection    = "posts"
	commentsCollection = "comments"
)

// Documents mirror the SQL rows; ids are strings (UUIDv7), not ObjectIDs.
type postDoc struct {
	ID           string     `bson:"_id"`
	AuthorID     string     `bson:"author_id"`
	Title        string     `bson:"title"`
	Content      string     `bson:"content,omitempty"`
	Views        int64      `bson:"views"`
	LikeCount    int64      `bson:"like_count"`
	CommentCount int64      `bson:"comment_count"`
	CreatedAt    time.Time  `bson:"created_at"`
	DeletedAt    *time.Time `bson:"deleted_at,omitempty"`
}

func (d postDoc) toDomain() domain.Post {
	return domain.Post{
		ID:           d.ID,
		AuthorID:     d.AuthorID,
		Title:        d.Title,
		Content:      d.Content,
		Views:        d.Views,
		LikeCount:    d.LikeCount,
		CommentCount: d.CommentCount,
		CreatedAt:    d.CreatedAt.UTC(),
		DeletedAt:    d.DeletedAt,
	}
}

type commentDoc struct {
	ID        string     `bson:"_id"`
	PostID    string     `bson:"post_id"`
	AuthorID  string     `bson:"author_id"`
	Content   string     `bson:"content"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty"`
}

func (d commentDoc) toDomain() domain.Comment {
	return domain.Comment{
		ID:        d.ID,
		PostID:    d.PostID,
		AuthorID:  d.AuthorID,
		Content:   d.Content,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
		DeletedAt: d.DeletedAt,
	}
}

// MongoPostRepo is the document-store implementation of the keyset engine.
// It expects compound indexes matching each strategy's sort (see migrations).
type MongoPostRepo struct {
	posts *mongo.Collection
}

func NewMongoPostRepo(db *mongo.Database) *MongoPostRepo {
	return &MongoPostRepo{posts: db.Collection(postsCollection)}
}

func (r *MongoPostRepo) ListPosts(ctx context.Context, strategy domain.Strategy, pos domain.Position, limit int) ([]domain.Post, error) {
	filter, sort, err := buildKeysetFilter(nil, strategy, pos)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(sort).
		SetLimit(int64(limit)).
		SetProjection(bson.D{{Key: "content", Value: 0}})

	cur, err := r.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, storeErr("list posts", err)
	}
	defer cur.Close(ctx)

	posts := make([]domain.Post, 0, limit)
	for cur.Next(ctx) {
		var d postDoc
		if err := cur.Decode(&d); err != nil {
			return nil, storeErr("decode post", err)
		}
		posts = append(posts, d.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, storeErr("list posts", err)
	}
	return posts, nil
}

func (r *MongoPostRepo) FindByID(ctx context.Context, postID string) (*domain.Post, error) {
	var d postDoc
	err := r.posts.FindOne(ctx, bson.D{{Key: "_id", Value: postID}, {Key: "deleted_at", Value: nil}}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPostNotFound
		}
		return nil, storeErr("find post", err)
	}
	p := d.toDomain()
	return &p, nil
}

// IncrementViews : one unordered BulkWrite of $inc
func (r *MongoPostRepo) IncrementViews(ctx context.Context, counts map[string]int64) error {
	if len(counts) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(counts))
	for id, n := range counts {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: id}}).
			SetUpdate(bson.D{{Key: "$inc", Value: bson.D{{Key: "views", Value: n}}}}))
	}

	if _, err := r.posts.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return storeErr("increment views", err)
	}
	return nil
}

type MongoCommentRepo struct {
	comments *mongo.Collection
}

func NewMongoCommentRepo(db *mongo.Database) *MongoCommentRepo {
	return &MongoCommentRepo{comments: db.Collection(commentsCollection)}
}

func (r *MongoCommentRepo) ListComments(ctx context.Context, postID string, pos domain.Position, limit int) ([]domain.Comment, error) {
	scope := bson.D{{Key: "post_id", Value: postID}}
	filter, sort, err := buildKeysetFilter(scope, domain.StrategyRecent, pos)
	if err != nil {
		return nil, err
	}

	cur, err := r.comments.Find(ctx, filter, options.Find().SetSort(sort).SetLimit(int64(limit)))
	if err != nil {
		return nil, storeErr("list comments", err)
	}
	defer cur.Close(ctx)

	comments := make([]domain.Comment, 0, limit)
	for cur.Next(ctx) {
		var d commentDoc
		if err := cur.Decode(&d); err != nil {
			return nil, storeErr("decode comment", err)
		}
		comments = append(comments, d.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, storeErr("list comments", err)
	}
	return comments, nil
}

// EnsureIndexes creates the compound indexes the keyset queries rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	postIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "views", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
	}
	if _, err := db.Collection(postsCollection).Indexes().CreateMany(ctx, postIdx); err != nil {
		return storeErr("posts indexes", err)
	}

	commentIdx := mongo.IndexModel{
		Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
	}
	if _, err := db.Collection(commentsCollection).Indexes().CreateOne(ctx, commentIdx); err != nil {
		return storeErr("comments indexes", err)
	}
	return nil
}
