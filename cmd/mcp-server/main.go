// Command mcp-server exposes moderator tooling over the Model Context
// Protocol so review agents can inspect the queue, pull user histories and
// exercise the text classifier for rule tuning.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/samujjwal/stayhub/internal/audit"
	"github.com/samujjwal/stayhub/internal/config"
	"github.com/samujjwal/stayhub/internal/db"
	"github.com/samujjwal/stayhub/internal/models"
	"github.com/samujjwal/stayhub/internal/moderation"
	"github.com/samujjwal/stayhub/internal/observability"
	"github.com/samujjwal/stayhub/internal/queue"
)

// ModerationServer holds the dependencies behind the MCP tools.
type ModerationServer struct {
	queue      *queue.ReviewQueue
	ledger     *audit.Ledger
	classifier moderation.TextClassifier
	logger     *zap.Logger
}

type QueueStatsInput struct{}

type QueueStatsOutput struct {
	Stats models.QueueStats `json:"stats"`
}

// GetQueueStats returns pending/approved/rejected totals and the pending
// breakdown by priority.
func (s *ModerationServer) GetQueueStats(ctx context.Context, req *mcp.CallToolRequest, input QueueStatsInput) (*mcp.CallToolResult, QueueStatsOutput, error) {
	stats, err := s.queue.Stats(ctx)
	if err != nil {
		return nil, QueueStatsOutput{}, fmt.Errorf("queue stats: %w", err)
	}
	return nil, QueueStatsOutput{Stats: *stats}, nil
}

type ListQueueInput struct {
	Status     string `json:"status,omitempty"`
	Priority   string `json:"priority,omitempty"`
	EntityType string `json:"entity_type,omitempty"`
}

type ListQueueOutput struct {
	Items []models.QueueItem `json:"items"`
}

// ListQueueItems returns queue items matching the optional filters,
// newest first.
func (s *ModerationServer) ListQueueItems(ctx context.Context, req *mcp.CallToolRequest, input ListQueueInput) (*mcp.CallToolResult, ListQueueOutput, error) {
	items, err := s.queue.List(ctx, queue.Filter{
		Status:     models.Status(input.Status),
		Priority:   models.Priority(input.Priority),
		EntityType: input.EntityType,
	})
	if err != nil {
		return nil, ListQueueOutput{}, fmt.Errorf("list queue: %w", err)
	}
	if items == nil {
		items = []models.QueueItem{}
	}
	return nil, ListQueueOutput{Items: items}, nil
}

type ClassifyTextInput struct {
	Text string `json:"text"`
}

type ClassifyTextOutput struct {
	Flags      []models.ModerationFlag `json:"flags"`
	Confidence float64                 `json:"confidence"`
	PIIFlags   []models.ModerationFlag `json:"pii_flags"`
	MaskedText string                  `json:"masked_text"`
}

// ClassifyText runs the rule classifier and PII detection against an
// arbitrary string.
func (s *ModerationServer) ClassifyText(ctx context.Context, req *mcp.CallToolRequest, input ClassifyTextInput) (*mcp.CallToolResult, ClassifyTextOutput, error) {
	textRes, err := s.classifier.ClassifyText(ctx, input.Text)
	if err != nil {
		return nil, ClassifyTextOutput{}, fmt.Errorf("classify text: %w", err)
	}
	piiRes, err := s.classifier.DetectPII(ctx, input.Text)
	if err != nil {
		return nil, ClassifyTextOutput{}, fmt.Errorf("detect pii: %w", err)
	}
	return nil, ClassifyTextOutput{
		Flags:      textRes.Flags,
		Confidence: textRes.Confidence,
		PIIFlags:   piiRes.Flags,
		MaskedText: piiRes.MaskedText,
	}, nil
}

type UserHistoryInput struct {
	UserID string `json:"user_id"`
}

type UserHistoryOutput struct {
	History models.UserModerationHistory `json:"history"`
}

// GetUserHistory returns a user's recent moderation records and derived
// risk level.
func (s *ModerationServer) GetUserHistory(ctx context.Context, req *mcp.CallToolRequest, input UserHistoryInput) (*mcp.CallToolResult, UserHistoryOutput, error) {
	history, err := s.ledger.UserHistory(ctx, input.UserID)
	if err != nil {
		return nil, UserHistoryOutput{}, fmt.Errorf("user history: %w", err)
	}
	return nil, UserHistoryOutput{History: *history}, nil
}

func main() {
	cfg := config.Load()

	logger, err := observability.InitLogger(cfg.ServiceName + "-mcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		logger.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pg.Close()

	metrics := &observability.MockMetricsRegistry{}
	ledger := audit.NewLedger(pg, cfg.HistoryLimit, cfg.RecentWindow)
	reviewQueue := queue.NewReviewQueue(pg, ledger, nil, metrics, logger, cfg.QueuePageSize)
	classifier := moderation.NewRuleTextClassifier(cfg.PlatformDomain)

	modServer := &ModerationServer{
		queue:      reviewQueue,
		ledger:     ledger,
		classifier: classifier,
		logger:     logger,
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "stayhub-moderation",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_queue_stats",
		Description: "Get review queue totals and the pending breakdown by priority",
	}, modServer.GetQueueStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_queue_items",
		Description: "List review queue items, optionally filtered by status, priority or entity type",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"PENDING", "APPROVED", "REJECTED"},
					"description": "Filter by item status (optional)",
				},
				"priority": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"LOW", "MEDIUM", "HIGH"},
					"description": "Filter by priority (optional)",
				},
				"entity_type": map[string]interface{}{
					"type":        "string",
					"description": "Filter by entity type, e.g. listing (optional)",
				},
			},
		},
	}, modServer.ListQueueItems)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "classify_text",
		Description: "Run the text classifier and PII detection against an arbitrary string for rule tuning",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Text to classify",
				},
			},
			"required": []string{"text"},
		},
	}, modServer.ClassifyText)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_user_history",
		Description: "Get a user's recent moderation records and derived risk level",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "User ID to look up",
				},
			},
			"required": []string{"user_id"},
		},
	}, modServer.GetUserHistory)

	logger.Info("MCP server running via stdio")

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
