package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rolegate/lib/sl"
)

// MongoConfig carries the connection settings for the optional Mongo
// backend.
type MongoConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

type mongoDocument[T any] struct {
	GuildID string `bson:"guild_id"`
	Key     string `bson:"key"`
	Value   T      `bson:"value"`
	Seq     int64  `bson:"seq"`
}

// MongoStore keeps the same contract as FileStore — in-memory state is
// authoritative within the process, mutations are written through
// best-effort — but durability goes to a Mongo collection instead of a
// local file. One collection per record type.
type MongoStore[T any] struct {
	mu            sync.Mutex
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
	collection    string
	log           *slog.Logger
	guilds        map[string]map[string]T
	order         map[string][]string
	seq           int64 // insertion counter, persisted so order survives restarts
}

// NewMongoStore opens a short-lived connection per operation. The full
// collection is read once at construction to seed the in-memory state.
func NewMongoStore[T any](conf MongoConfig, collection string, log *slog.Logger) *MongoStore[T] {
	connectionURI := fmt.Sprintf("mongodb://%s:%s", conf.Host, conf.Port)
	clientOptions := options.Client().ApplyURI(connectionURI)
	if conf.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.User,
			Password:   conf.Password,
			AuthSource: conf.Database,
		})
	}
	s := &MongoStore[T]{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Database,
		collection:    collection,
		log:           log.With(sl.Module("store.mongo"), slog.String("collection", collection)),
		guilds:        make(map[string]map[string]T),
		order:         make(map[string][]string),
	}
	s.load()
	return s
}

func (s *MongoStore[T]) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(s.ctx, s.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (s *MongoStore[T]) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(s.ctx)
}

func (s *MongoStore[T]) load() {
	connection, err := s.connect()
	if err != nil {
		s.log.Warn("loading records, starting fresh", sl.Err(err))
		return
	}
	defer s.disconnect(connection)

	coll := connection.Database(s.database).Collection(s.collection)
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := coll.Find(s.ctx, bson.D{}, opts)
	if err != nil {
		s.log.Warn("loading records, starting fresh", sl.Err(err))
		return
	}
	defer cursor.Close(s.ctx)

	var docs []mongoDocument[T]
	if err = cursor.All(s.ctx, &docs); err != nil {
		s.log.Warn("decoding records, starting fresh", sl.Err(err))
		return
	}
	for _, doc := range docs {
		records, ok := s.guilds[doc.GuildID]
		if !ok {
			records = make(map[string]T)
			s.guilds[doc.GuildID] = records
		}
		records[doc.Key] = doc.Value
		s.order[doc.GuildID] = append(s.order[doc.GuildID], doc.Key)
		if doc.Seq > s.seq {
			s.seq = doc.Seq
		}
	}
	s.log.Debug("loaded records", slog.Int("count", len(docs)))
}

// Get returns the record for (guildID, key).
func (s *MongoStore[T]) Get(guildID, key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.guilds[guildID]
	if !ok {
		var zero T
		return zero, false
	}
	value, ok := records[key]
	return value, ok
}

// Put inserts or overwrites the record for (guildID, key), writing through
// to the collection best-effort.
func (s *MongoStore[T]) Put(guildID, key string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.guilds[guildID]
	if !ok {
		records = make(map[string]T)
		s.guilds[guildID] = records
	}
	if _, exists := records[key]; !exists {
		s.order[guildID] = append(s.order[guildID], key)
		s.seq++
	}
	records[key] = value

	connection, err := s.connect()
	if err != nil {
		s.log.Error("saving record, in-memory state diverges", sl.Err(err))
		return
	}
	defer s.disconnect(connection)

	coll := connection.Database(s.database).Collection(s.collection)
	filter := bson.D{{Key: "guild_id", Value: guildID}, {Key: "key", Value: key}}
	// seq is assigned once on insert so an overwrite keeps its position.
	update := bson.D{
		{Key: "$set", Value: bson.D{{Key: "value", Value: value}}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "seq", Value: s.seq}}},
	}
	opts := options.Update().SetUpsert(true)
	if _, err = coll.UpdateOne(s.ctx, filter, update, opts); err != nil {
		s.log.Error("saving record, in-memory state diverges", sl.Err(err))
	}
}

// Delete removes the record for (guildID, key) and reports whether one
// existed in memory.
func (s *MongoStore[T]) Delete(guildID, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.guilds[guildID]
	if !ok {
		return false
	}
	if _, exists := records[key]; !exists {
		return false
	}
	delete(records, key)
	keys := s.order[guildID]
	for i, k := range keys {
		if k == key {
			s.order[guildID] = append(keys[:i], keys[i+1:]...)
			break
		}
	}

	connection, err := s.connect()
	if err != nil {
		s.log.Error("deleting record, in-memory state diverges", sl.Err(err))
		return true
	}
	defer s.disconnect(connection)

	coll := connection.Database(s.database).Collection(s.collection)
	filter := bson.D{{Key: "guild_id", Value: guildID}, {Key: "key", Value: key}}
	if _, err = coll.DeleteOne(s.ctx, filter); err != nil {
		s.log.Error("deleting record, in-memory state diverges", sl.Err(err))
	}
	return true
}

// ListByGuild returns the guild's records in insertion order.
func (s *MongoStore[T]) ListByGuild(guildID string) []Entry[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.guilds[guildID]
	if !ok {
		return nil
	}
	entries := make([]Entry[T], 0, len(records))
	for _, key := range s.order[guildID] {
		value, exists := records[key]
		if !exists {
			continue
		}
		entries = append(entries, Entry[T]{Key: key, Value: value})
	}
	return entries
}
