package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/janhq/health-agent/internal/domain/chat"
)

// Collection names.
const (
	SessionsCollection = "chat_sessions"
	MessagesCollection = "chat_messages"
	ProfilesCollection = "user_profiles"
)

// MongoStore persists sessions and messages in MongoDB.
type MongoStore struct {
	client   *mongo.Client
	sessions *mongo.Collection
	messages *mongo.Collection
	profiles *mongo.Collection
	log      zerolog.Logger
}

// NewMongoStore connects to MongoDB, verifies the connection and ensures indexes.
func NewMongoStore(ctx context.Context, uri, database string, log zerolog.Logger) (*MongoStore, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		sessions: db.Collection(SessionsCollection),
		messages: db.Collection(MessagesCollection),
		profiles: db.Collection(ProfilesCollection),
		log:      log.With().Str("component", "chat-store").Str("backend", "mongo").Logger(),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	s.log.Info().Str("database", database).Msg("connected to mongo")
	return s, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	sessionIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_active", Value: 1}, {Key: "updated_at", Value: -1}}},
	}
	if _, err := s.sessions.Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		return fmt.Errorf("create session indexes: %w", err)
	}

	messageIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "message_type", Value: 1}}},
	}
	if _, err := s.messages.Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}

	profileIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := s.profiles.Indexes().CreateMany(ctx, profileIndexes); err != nil {
		return fmt.Errorf("create profile indexes: %w", err)
	}
	return nil
}

// GetOrCreate upserts the session with $setOnInsert so concurrent first calls
// converge on one document. The unique session_id index turns a session owned
// by another user into a duplicate key error, reported as not found.
func (s *MongoStore) GetOrCreate(ctx context.Context, userID, sessionID string) (*chat.Session, bool, error) {
	now := time.Now().UTC()
	filter := ownedFilter(sessionID, userID)
	update := bson.M{"$setOnInsert": bson.M{
		"title":      chat.DefaultTitle,
		"created_at": now,
		"updated_at": now,
		"is_active":  true,
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var existing chat.Session
	err := s.sessions.FindOneAndUpdate(ctx, filter, update, opts).Decode(&existing)
	switch {
	case err == nil:
		return &existing, false, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		// no document before the update: this call inserted it
		return chat.NewSession(userID, sessionID, now), true, nil
	case mongo.IsDuplicateKeyError(err):
		sess, findErr := s.FindSession(ctx, sessionID, userID)
		if findErr != nil {
			return nil, false, findErr
		}
		return sess, false, nil
	default:
		return nil, false, fmt.Errorf("upsert session: %w", err)
	}
}

// FindSession retrieves an owned session by ID.
func (s *MongoStore) FindSession(ctx context.Context, sessionID, userID string) (*chat.Session, error) {
	var sess chat.Session
	err := s.sessions.FindOne(ctx, ownedFilter(sessionID, userID)).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, chat.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &sess, nil
}

// SessionOwner reads the owner of a session by its unique ID.
func (s *MongoStore) SessionOwner(ctx context.Context, sessionID string) (string, error) {
	var doc struct {
		UserID string `bson:"user_id"`
	}
	opts := options.FindOne().SetProjection(bson.M{"user_id": 1})
	err := s.sessions.FindOne(ctx, bson.M{"session_id": sessionID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", chat.ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find session owner: %w", err)
	}
	return doc.UserID, nil
}

// DeleteEmptySession removes an owned session that never received a message.
func (s *MongoStore) DeleteEmptySession(ctx context.Context, sessionID, userID string) (bool, error) {
	n, err := s.messages.CountDocuments(ctx, ownedFilter(sessionID, userID))
	if err != nil {
		return false, fmt.Errorf("count messages: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	res, err := s.sessions.DeleteOne(ctx, ownedFilter(sessionID, userID))
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// AppendMessage refreshes the session first so a missing session never gets orphan messages.
func (s *MongoStore) AppendMessage(ctx context.Context, msg *chat.Message) (*chat.Message, error) {
	now := time.Now().UTC()

	titled := ownedFilter(msg.SessionID, msg.UserID)
	titled["title"] = chat.DefaultTitle
	res, err := s.sessions.UpdateOne(ctx, titled, bson.M{"$set": bson.M{
		"title":      chat.GenerateTitle(msg.Message),
		"updated_at": now,
	}})
	if err != nil {
		return nil, fmt.Errorf("update session title: %w", err)
	}

	if res.MatchedCount == 0 {
		res, err = s.sessions.UpdateOne(ctx, ownedFilter(msg.SessionID, msg.UserID), bson.M{"$set": bson.M{
			"updated_at": now,
		}})
		if err != nil {
			return nil, fmt.Errorf("touch session: %w", err)
		}
		if res.MatchedCount == 0 {
			return nil, chat.ErrSessionNotFound
		}
	}

	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// ListSessions returns active sessions, most recently updated first.
func (s *MongoStore) ListSessions(ctx context.Context, userID string, limit int) ([]*chat.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.sessions.Find(ctx, bson.M{"user_id": userID, "is_active": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("find sessions: %w", err)
	}

	sessions := make([]*chat.Session, 0)
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return sessions, nil
}

// ListMessages returns the newest messages of an owned session, oldest first.
func (s *MongoStore) ListMessages(ctx context.Context, sessionID, userID string, limit int) ([]*chat.Message, error) {
	if _, err := s.FindSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "message_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.messages.Find(ctx, ownedFilter(sessionID, userID), opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}

	messages := make([]*chat.Message, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// SoftDelete clears the active flag of an owned session.
func (s *MongoStore) SoftDelete(ctx context.Context, sessionID, userID string) error {
	res, err := s.sessions.UpdateOne(ctx, ownedFilter(sessionID, userID), bson.M{"$set": bson.M{"is_active": false}})
	if err != nil {
		return fmt.Errorf("soft delete session: %w", err)
	}
	if res.MatchedCount == 0 {
		return chat.ErrSessionNotFound
	}
	return nil
}

func ownedFilter(sessionID, userID string) bson.M {
	return bson.M{"session_id": sessionID, "user_id": userID}
}

var _ chat.Store = (*MongoStore)(nil)
