package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TheFitzZZ/donetick-mcp-server/internal/donetick"
)

// registerListChoresTool adds the list_chores tool to the server.
func registerListChoresTool(s *server.MCPServer, client *donetick.Client) {
	tool := mcp.NewTool("list_chores",
		mcp.WithDescription("List chores from Donetick. Supports filtering by active status and assigned user."),
		mcp.WithBoolean("filter_active",
			mcp.Description("Only return active chores"),
		),
		mcp.WithNumber("assigned_to",
			mcp.Description("Only return chores assigned to this user ID"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		filters := donetick.ListFilters{}
		if v, ok := args["filter_active"].(bool); ok {
			filters.ActiveOnly = v
		}
		if v, ok := args["assigned_to"].(float64); ok {
			filters.AssignedTo = int64(v)
		}

		chores, err := client.ListChores(ctx, filters)
		if err != nil {
			return mcp.NewToolResultError("failed to list chores: " + err.Error()), nil
		}
		return jsonResult(chores)
	})
}

// registerGetChoreTool adds the get_chore tool to the server.
func registerGetChoreTool(s *server.MCPServer, client *donetick.Client) {
	tool := mcp.NewTool("get_chore",
		mcp.WithDescription("Get a single chore by ID. Recently listed chores are served from a short-lived cache."),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Chore ID"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := intArg(req.GetArguments(), "id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		chore, err := client.GetChore(ctx, id)
		if err != nil {
			return mcp.NewToolResultError("failed to get chore: " + err.Error()), nil
		}
		return jsonResult(chore)
	})
}

// registerCreateChoreTool adds the create_chore tool to the server.
func registerCreateChoreTool(s *server.MCPServer, client *donetick.Client) {
	tool := mcp.NewTool("create_chore",
		mcp.WithDescription("Create a new chore in Donetick with optional recurrence, assignment, notification, priority, labels and points."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Chore name (1-200 characters)"),
		),
		mcp.WithString("description",
			mcp.Description("Chore description (up to 5000 characters)"),
		),
		mcp.WithString("due_date",
			mcp.Description("Due date, RFC 3339 (2025-11-10T09:00:00Z) or YYYY-MM-DD (2025-11-10)"),
		),
		mcp.WithString("frequency_type",
			mcp.Description("Recurrence: once, daily, weekly, monthly, yearly, interval_based (default: once)"),
		),
		mcp.WithNumber("frequency",
			mcp.Description("Recurrence interval, e.g. 1 = every period, 2 = every other period (default: 1)"),
		),
		mcp.WithBoolean("is_rolling",
			mcp.Description("Rolling schedule: next due date counts from completion instead of the fixed schedule"),
		),
		mcp.WithNumber("assigned_to",
			mcp.Description("Primary assignee user ID"),
		),
		mcp.WithString("assign_strategy",
			mcp.Description("Rotation strategy: least_completed, round_robin, random (default: least_completed)"),
		),
		mcp.WithNumber("created_by",
			mcp.Description("Creator user ID"),
		),
		mcp.WithBoolean("notification",
			mcp.Description("Enable notifications for this chore"),
		),
		mcp.WithBoolean("nagging",
			mcp.Description("Enable repeated overdue reminders (requires notification)"),
		),
		mcp.WithBoolean("predue",
			mcp.Description("Enable a reminder before the due date (requires notification)"),
		),
		mcp.WithNumber("priority",
			mcp.Description("Priority 1 (lowest) to 5 (highest)"),
		),
		mcp.WithArray("labels",
			mcp.Description("Label tags for categorization"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithBoolean("is_private",
			mcp.Description("Visible only to the creator"),
		),
		mcp.WithNumber("points",
			mcp.Description("Points awarded on completion"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		spec := &donetick.ChoreCreate{}
		if v, ok := args["name"].(string); ok {
			spec.Name = v
		}
		if v, ok := args["description"].(string); ok {
			spec.Description = v
		}
		if v, ok := args["due_date"].(string); ok {
			spec.DueDate = v
		}
		if v, ok := args["frequency_type"].(string); ok {
			spec.FrequencyType = v
		}
		if v, ok := args["frequency"].(float64); ok {
			spec.Frequency = int(v)
		}
		if v, ok := args["is_rolling"].(bool); ok {
			spec.IsRolling = v
		}
		if v, ok := args["assigned_to"].(float64); ok {
			spec.AssignedTo = int64(v)
			spec.Assignees = []donetick.Assignee{{UserID: int64(v)}}
		}
		if v, ok := args["assign_strategy"].(string); ok {
			spec.AssignStrategy = v
		}
		if v, ok := args["created_by"].(float64); ok {
			spec.CreatedBy = int64(v)
		}
		if v, ok := args["notification"].(bool); ok {
			spec.Notification = v
		}
		nagging, _ := args["nagging"].(bool)
		predue, _ := args["predue"].(bool)
		if nagging || predue {
			spec.NotificationMetadata = &donetick.NotificationMeta{Nagging: nagging, Predue: predue}
		}
		if v, ok := args["priority"].(float64); ok {
			spec.Priority = int(v)
		}
		if v, ok := args["labels"].([]any); ok {
			for _, label := range v {
				if s, ok := label.(string); ok {
					spec.Labels = append(spec.Labels, s)
				}
			}
		}
		if v, ok := args["is_private"].(bool); ok {
			spec.IsPrivate = v
		}
		if v, ok := args["points"].(float64); ok {
			spec.Points = int(v)
		}

		chore, err := client.CreateChore(ctx, spec)
		if err != nil {
			return mcp.NewToolResultError("failed to create chore: " + err.Error()), nil
		}
		return jsonResult(chore)
	})
}

// registerUpdateChoreTool adds the update_chore tool to the server.
func registerUpdateChoreTool(s *server.MCPServer, client *donetick.Client) {
	tool := mcp.NewTool("update_chore",
		mcp.WithDescription("Update a chore's name, description or next due date."),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Chore ID"),
		),
		mcp.WithString("name",
			mcp.Description("New chore name"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("due_date",
			mcp.Description("New next due date, RFC 3339 or YYYY-MM-DD"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		id, err := intArg(args, "id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		spec := &donetick.ChoreUpdate{}
		if v, ok := args["name"].(string); ok {
			spec.Name = &v
		}
		if v, ok := args["description"].(string); ok {
			spec.Description = &v
		}
		if v, ok := args["due_date"].(string); ok {
			spec.NextDueDate = &v
		}

		chore, err := client.UpdateChore(ctx, id, spec)
		if err != nil {
			return mcp.NewToolResultError("failed to update chore: " + err.Error()), nil
		}
		return jsonResult(chore)
	})
}

// registerCompleteChoreTool adds the complete_chore tool to the server.
func registerCompleteChoreTool(s *server.MCPServer, client *donetick.Client) {
	tool := mcp.NewTool("complete_chore",
		mcp.WithDescription("Mark a chore as completed."),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Chore ID"),
		),
		mcp.WithNumber("completed_by",
			mcp.Description("User ID completing the chore (defaults to the authenticated user)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		id, err := intArg(args, "id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var completedBy int64
		if v, ok := args["completed_by"].(float64); ok {
			completedBy = int64(v)
		}

		chore, err := client.CompleteChore(ctx, id, completedBy)
		if err != nil {
			return mcp.NewToolResultError("failed to complete chore: " + err.Error()), nil
		}
		if chore == nil {
			return mcp.NewToolResultText(fmt.Sprintf(`{"completed": true, "id": %d}`, id)), nil
		}
		return jsonResult(chore)
	})
}

// registerDeleteChoreTool adds the delete_chore tool to the server.
func registerDeleteChoreTool(s *server.MCPServer, client *donetick.Client) {
	tool := mcp.NewTool("delete_chore",
		mcp.WithDescription("Delete a chore permanently."),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Chore ID"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := intArg(req.GetArguments(), "id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := client.DeleteChore(ctx, id); err != nil {
			return mcp.NewToolResultError("failed to delete chore: " + err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(`{"deleted": true, "id": %d}`, id)), nil
	})
}

// registerGetCircleMembersTool adds the get_circle_members tool to the server.
func registerGetCircleMembersTool(s *server.MCPServer, client *donetick.Client) {
	tool := mcp.NewTool("get_circle_members",
		mcp.WithDescription("List the members of the authenticated user's circle, with user IDs usable for chore assignment."),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		members, err := client.GetCircleMembers(ctx)
		if err != nil {
			return mcp.NewToolResultError("failed to get circle members: " + err.Error()), nil
		}
		return jsonResult(members)
	})
}

func intArg(args map[string]any, key string) (int64, error) {
	v, ok := args[key].(float64)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return int64(v), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to serialize result: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
