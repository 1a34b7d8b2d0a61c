package mcp

import (
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ldi/planner/internal/tracker"
	"github.com/ldi/planner/pkg/models"
)

// backend serializes tool calls; the manager itself is not safe for concurrent use.
type backend struct {
	mu sync.Mutex
	m  *tracker.Manager
}

// NewServer creates a new MCP server.
func NewServer(manager *tracker.Manager) *server.MCPServer {
	s := server.NewMCPServer("Planner", "0.1.0")
	b := &backend{m: manager}

	// Tasks
	s.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a task. Rejected if its time window overlaps another scheduled task or subtask."),
		mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("status", mcp.Description("NEW, IN_PROGRESS or DONE (default NEW)")),
		mcp.WithString("start_time", mcp.Description("Start time as YYYY-MM-DD HH:MM")),
		mcp.WithNumber("duration", mcp.Description("Duration in minutes")),
	), createHandler(b, models.KindTask))

	s.AddTool(mcp.NewTool("update_task",
		mcp.WithDescription("Update a task. Omitted fields keep their value; an empty start_time unschedules it."),
		mcp.WithNumber("id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("status", mcp.Description("New status")),
		mcp.WithString("start_time", mcp.Description("New start time")),
		mcp.WithNumber("duration", mcp.Description("New duration in minutes")),
	), updateHandler(b, models.KindTask))

	// Epics
	s.AddTool(mcp.NewTool("create_epic",
		mcp.WithDescription("Create an epic. Its status and schedule are derived from its subtasks."),
		mcp.WithString("title", mcp.Description("Epic title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Epic description")),
	), createHandler(b, models.KindEpic))

	s.AddTool(mcp.NewTool("update_epic",
		mcp.WithDescription("Update the title or description of an epic."),
		mcp.WithNumber("id", mcp.Description("Epic ID"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
	), updateHandler(b, models.KindEpic))

	s.AddTool(mcp.NewTool("get_epic_subtasks",
		mcp.WithDescription("List the subtasks of an epic in link order."),
		mcp.WithNumber("id", mcp.Description("Epic ID"), mcp.Required()),
	), getEpicSubtasksHandler(b))

	// Subtasks
	s.AddTool(mcp.NewTool("create_subtask",
		mcp.WithDescription("Create a subtask inside an existing epic."),
		mcp.WithNumber("epic_id", mcp.Description("Owning epic ID"), mcp.Required()),
		mcp.WithString("title", mcp.Description("Subtask title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Subtask description")),
		mcp.WithString("status", mcp.Description("NEW, IN_PROGRESS or DONE (default NEW)")),
		mcp.WithString("start_time", mcp.Description("Start time as YYYY-MM-DD HH:MM")),
		mcp.WithNumber("duration", mcp.Description("Duration in minutes")),
	), createHandler(b, models.KindSubtask))

	s.AddTool(mcp.NewTool("update_subtask",
		mcp.WithDescription("Update a subtask. Setting epic_id moves it to another epic."),
		mcp.WithNumber("id", mcp.Description("Subtask ID"), mcp.Required()),
		mcp.WithNumber("epic_id", mcp.Description("New owning epic ID")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("status", mcp.Description("New status")),
		mcp.WithString("start_time", mcp.Description("New start time")),
		mcp.WithNumber("duration", mcp.Description("New duration in minutes")),
	), updateHandler(b, models.KindSubtask))

	for _, kind := range []models.Kind{models.KindTask, models.KindEpic, models.KindSubtask} {
		name := kindName(kind)
		s.AddTool(mcp.NewTool("get_"+name,
			mcp.WithDescription(fmt.Sprintf("Get a %s by ID. Records it in the view history.", name)),
			mcp.WithNumber("id", mcp.Description("ID"), mcp.Required()),
		), getHandler(b, kind))

		s.AddTool(mcp.NewTool("delete_"+name,
			mcp.WithDescription(fmt.Sprintf("Delete a %s by ID.", name)),
			mcp.WithNumber("id", mcp.Description("ID"), mcp.Required()),
		), deleteHandler(b, kind))

		s.AddTool(mcp.NewTool("list_"+name+"s",
			mcp.WithDescription(fmt.Sprintf("List all %ss ordered by ID.", name)),
		), listHandler(b, kind))
	}

	// Views
	s.AddTool(mcp.NewTool("get_prioritized_tasks",
		mcp.WithDescription("List scheduled tasks and subtasks ordered by start time."),
	), prioritizedHandler(b))

	s.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("List the most recently viewed items, oldest first."),
	), historyHandler(b))

	s.AddTool(mcp.NewTool("delete_all",
		mcp.WithDescription("Delete every item of a kind. Deleting all epics also deletes all subtasks."),
		mcp.WithString("kind", mcp.Description("task, epic or subtask"), mcp.Required()),
	), deleteAllHandler(b))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
