package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"toolshed/internal/domain"
)

const toolsCollection = "tools"

// Client owns the connection to a MongoDB deployment
type Client struct {
	client   *mongo.Client
	database *mongo.Database
}

// Connect dials MongoDB and verifies the connection
func Connect(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Client{client: client, database: client.Database(database)}, nil
}

// Ping checks the deployment is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// ToolRepository implements domain.ToolRepository on a MongoDB collection
type ToolRepository struct {
	tools  *mongo.Collection
	logger *slog.Logger
}

// NewToolRepository creates the repository and ensures its indexes exist
func NewToolRepository(ctx context.Context, c *Client, logger *slog.Logger) (*ToolRepository, error) {
	r := &ToolRepository{
		tools:  c.database.Collection(toolsCollection),
		logger: logger,
	}
	if err := r.createIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *ToolRepository) createIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.tools.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "url_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "submitted_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create tool indexes: %w", err)
	}
	return nil
}

// Create inserts a new tool, assigning an ID and submission time when unset
func (r *ToolRepository) Create(ctx context.Context, tool *domain.Tool) error {
	if tool.ID == "" {
		tool.ID = uuid.New().String()
	}
	if tool.SubmittedAt.IsZero() {
		tool.SubmittedAt = time.Now().UTC()
	}
	if tool.Categories == nil {
		tool.Categories = []string{}
	}
	tool.URLKey = tool.DedupeKey()

	if _, err := r.tools.InsertOne(ctx, tool); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to create tool %s: %w", tool.URL, domain.ErrDuplicateURL)
		}
		r.logger.Error("Failed to create tool",
			"error", err,
			"tool_id", tool.ID,
			"url", tool.URL,
		)
		return fmt.Errorf("failed to create tool: %w", err)
	}

	r.logger.Info("Tool created successfully",
		"tool_id", tool.ID,
		"url", tool.URL,
	)
	return nil
}

// GetByID retrieves a tool by ID
func (r *ToolRepository) GetByID(ctx context.Context, id string) (*domain.Tool, error) {
	tool, err := r.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to query tool: %w", err)
	}
	if tool == nil {
		return nil, domain.ErrNotFound
	}
	return tool, nil
}

// GetByURL finds a tool by its dedupe key, nil when absent
func (r *ToolRepository) GetByURL(ctx context.Context, url string) (*domain.Tool, error) {
	tool, err := r.findOne(ctx, bson.M{"url_key": url})
	if err != nil {
		return nil, fmt.Errorf("failed to query tool by URL: %w", err)
	}
	return tool, nil
}

func (r *ToolRepository) findOne(ctx context.Context, filter bson.M) (*domain.Tool, error) {
	var tool domain.Tool
	err := r.tools.FindOne(ctx, filter).Decode(&tool)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find tool", "error", err, "filter", filter)
		return nil, err
	}
	return normalizeTimes(&tool), nil
}

// Update applies the non-nil fields with $set and returns the stored tool
func (r *ToolRepository) Update(ctx context.Context, id string, update domain.ToolUpdate) (*domain.Tool, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var tool domain.Tool
	err := r.tools.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": buildSetDocument(update)}, opts).Decode(&tool)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to update tool",
			"error", err,
			"tool_id", id,
		)
		return nil, fmt.Errorf("failed to update tool: %w", err)
	}

	r.logger.Info("Tool updated successfully", "tool_id", id)
	return normalizeTimes(&tool), nil
}

// buildSetDocument maps a ToolUpdate onto stored field names
func buildSetDocument(update domain.ToolUpdate) bson.M {
	set := bson.M{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if len(update.Categories) > 0 {
		set["categories"] = update.Categories
	}
	if update.ImageURL != nil {
		set["image_url"] = *update.ImageURL
	}
	if update.Justification != nil {
		set["justification"] = *update.Justification
	}

	lastUpdatedAt := update.LastUpdatedAt
	if lastUpdatedAt.IsZero() {
		lastUpdatedAt = time.Now().UTC()
	}
	set["last_updated_at"] = lastUpdatedAt
	return set
}

// IncrementCounters applies the non-zero deltas with a single $inc
func (r *ToolRepository) IncrementCounters(ctx context.Context, id string, delta domain.VoteDelta) error {
	inc := buildIncDocument(delta)
	if len(inc) == 0 {
		return nil
	}

	result, err := r.tools.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": inc})
	if err != nil {
		r.logger.Error("Failed to increment vote counters",
			"error", err,
			"tool_id", id,
		)
		return fmt.Errorf("failed to increment vote counters: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func buildIncDocument(delta domain.VoteDelta) bson.M {
	inc := bson.M{}
	if delta.Upvotes != 0 {
		inc["upvotes"] = delta.Upvotes
	}
	if delta.Downvotes != 0 {
		inc["downvotes"] = delta.Downvotes
	}
	return inc
}

// List returns every tool, newest submission first
func (r *ToolRepository) List(ctx context.Context) ([]*domain.Tool, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}})

	cursor, err := r.tools.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.Error("Failed to list tools", "error", err)
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	defer cursor.Close(ctx)

	tools := []*domain.Tool{}
	for cursor.Next(ctx) {
		var tool domain.Tool
		if err := cursor.Decode(&tool); err != nil {
			return nil, fmt.Errorf("failed to decode tool: %w", err)
		}
		tools = append(tools, normalizeTimes(&tool))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tools: %w", err)
	}

	return tools, nil
}

// normalizeTimes converts BSON datetimes to UTC and fills nil slices
func normalizeTimes(tool *domain.Tool) *domain.Tool {
	tool.SubmittedAt = tool.SubmittedAt.UTC()
	if tool.LastUpdatedAt != nil {
		t := tool.LastUpdatedAt.UTC()
		tool.LastUpdatedAt = &t
	}
	if tool.Categories == nil {
		tool.Categories = []string{}
	}
	return tool
}
