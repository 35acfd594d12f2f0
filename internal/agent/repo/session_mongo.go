package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agrideliver/server/internal/agent/model"
	errx "github.com/agrideliver/server/internal/core/error"
	logx "github.com/agrideliver/server/pkg/logger"
)

const collectionSessions = "chat_sessions"

// MongoSessionRepository persists conversation sessions as one document per
// (user_id, chat_id), maintained through upserts so concurrent first turns
// cannot create duplicates.
type MongoSessionRepository struct {
	sessions *mongo.Collection
}

func NewMongoSessionRepository(db *mongo.Database) *MongoSessionRepository {
	return &MongoSessionRepository{sessions: db.Collection(collectionSessions)}
}

func (r *MongoSessionRepository) LoadSession(ctx context.Context, userID, sessionID string) (*model.Session, error) {
	filter := bson.M{"user_id": userID, "chat_id": sessionID}

	var session model.Session
	err := r.sessions.FindOne(ctx, filter).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Str("chat_id", sessionID).Msg("failed to load session")
		return nil, errx.WrapMongo(err)
	}
	return &session, nil
}

// AppendTurnAndCart appends both turns of a completed exchange and replaces
// the cart snapshot in one atomic upsert. $setOnInsert seeds identity fields
// only when the write creates the session.
func (r *MongoSessionRepository) AppendTurnAndCart(ctx context.Context, userID, sessionID string, userTurn, assistantTurn model.ConversationTurn, cart []model.CartLine) error {
	if cart == nil {
		cart = []model.CartLine{}
	}
	now := time.Now().UTC()

	filter := bson.M{"user_id": userID, "chat_id": sessionID}
	update := bson.M{
		"$push": bson.M{
			"messages": bson.M{"$each": bson.A{userTurn, assistantTurn}},
		},
		"$set": bson.M{
			"cart":      cart,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"user_id":   userID,
			"chat_id":   sessionID,
			"title":     "",
			"createdAt": now,
		},
	}

	if _, err := r.sessions.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		logx.Error().Err(err).Str("user_id", userID).Str("chat_id", sessionID).Msg("failed to append turn")
		return errx.WrapMongo(err)
	}
	return nil
}

// SetTitleIfUnset writes the title only when the session still carries the
// empty placeholder, which makes the title write idempotent and set-once.
func (r *MongoSessionRepository) SetTitleIfUnset(ctx context.Context, userID, sessionID, title string) error {
	filter := bson.M{"user_id": userID, "chat_id": sessionID, "title": ""}
	update := bson.M{"$set": bson.M{"title": title, "updatedAt": time.Now().UTC()}}

	if _, err := r.sessions.UpdateOne(ctx, filter, update); err != nil {
		logx.Error().Err(err).Str("user_id", userID).Str("chat_id", sessionID).Msg("failed to set session title")
		return errx.WrapMongo(err)
	}
	return nil
}

func (r *MongoSessionRepository) ListSessions(ctx context.Context, userID string) ([]model.SessionSummary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := r.sessions.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to list sessions")
		return nil, errx.WrapMongo(err)
	}
	defer cursor.Close(ctx)

	var sessions []model.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, errx.WrapMongo(err)
	}

	summaries := make([]model.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summary := model.SessionSummary{
			SessionID:    s.SessionID,
			Title:        s.Title,
			MessageCount: len(s.Messages),
			UpdatedAt:    s.UpdatedAt,
		}
		if summary.Title == "" {
			summary.Title = "New Chat"
		}
		if n := len(s.Messages); n > 0 {
			summary.LastMessage = s.Messages[n-1].Content
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
