package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ldi/planner/pkg/models"
)

func kindName(k models.Kind) string {
	return strings.ToLower(string(k))
}

func parseKind(s string) (models.Kind, error) {
	return models.ParseKind(strings.ToUpper(strings.TrimSpace(s)))
}

func arguments(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	return args
}

func number(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// overlay copies the fields present in args onto r.
func overlay(r models.Record, args map[string]any) models.Record {
	if v, ok := args["title"].(string); ok {
		r.Title = v
	}
	if v, ok := args["description"].(string); ok {
		r.Description = v
	}
	if v, ok := args["status"].(string); ok {
		r.Status = models.Status(strings.ToUpper(v))
	}
	if v, ok := args["start_time"].(string); ok {
		r.StartTime = v
	}
	if v, ok := number(args, "duration"); ok {
		r.Duration = v
	}
	if v, ok := number(args, "epic_id"); ok {
		r.EpicID = v
	}
	return r
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// save stores r as kind, creating it when create is set. It returns nil
// when the target does not exist or the subtask's epic is unknown.
func (b *backend) save(ctx context.Context, kind models.Kind, r models.Record, create bool) (models.Item, error) {
	switch kind {
	case models.KindTask:
		t, err := r.Task()
		if err != nil {
			return nil, err
		}
		out := b.m.UpdateTask
		if create {
			out = b.m.CreateTask
		}
		v, err := out(ctx, t)
		if v == nil {
			return nil, err
		}
		return v, err
	case models.KindEpic:
		e, err := r.Epic()
		if err != nil {
			return nil, err
		}
		out := b.m.UpdateEpic
		if create {
			out = b.m.CreateEpic
		}
		v, err := out(ctx, e)
		if v == nil {
			return nil, err
		}
		return v, err
	default:
		s, err := r.Subtask()
		if err != nil {
			return nil, err
		}
		out := b.m.UpdateSubtask
		if create {
			out = b.m.CreateSubtask
		}
		v, err := out(ctx, s)
		if v == nil {
			return nil, err
		}
		return v, err
	}
}

func createHandler(b *backend, kind models.Kind) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rec := overlay(models.Record{Type: kind}, arguments(request))

		b.mu.Lock()
		defer b.mu.Unlock()
		item, err := b.save(ctx, kind, rec, true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if item == nil {
			return mcp.NewToolResultError(fmt.Sprintf("Epic %d not found", rec.EpicID)), nil
		}
		return jsonResult(models.NewRecord(item))
	}
}

func updateHandler(b *backend, kind models.Kind) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, _ := number(arguments(request), "id")

		b.mu.Lock()
		defer b.mu.Unlock()
		existing := b.m.Lookup(models.Ref{Kind: kind, ID: id})
		if existing == nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s %d not found", kindName(kind), id)), nil
		}

		rec := overlay(models.NewRecord(existing), arguments(request))
		item, err := b.save(ctx, kind, rec, false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if item == nil {
			return mcp.NewToolResultError(fmt.Sprintf("Epic %d not found", rec.EpicID)), nil
		}
		return jsonResult(models.NewRecord(item))
	}
}

func getHandler(b *backend, kind models.Kind) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, _ := number(arguments(request), "id")

		b.mu.Lock()
		defer b.mu.Unlock()
		var item models.Item
		switch kind {
		case models.KindTask:
			if t := b.m.GetTask(id); t != nil {
				item = t
			}
		case models.KindEpic:
			if e := b.m.GetEpic(id); e != nil {
				item = e
			}
		case models.KindSubtask:
			if s := b.m.GetSubtask(id); s != nil {
				item = s
			}
		}
		if item == nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s %d not found", kindName(kind), id)), nil
		}
		return jsonResult(models.NewRecord(item))
	}
}

func deleteHandler(b *backend, kind models.Kind) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, _ := number(arguments(request), "id")

		b.mu.Lock()
		defer b.mu.Unlock()
		del := b.m.DeleteTask
		switch kind {
		case models.KindEpic:
			del = b.m.DeleteEpic
		case models.KindSubtask:
			del = b.m.DeleteSubtask
		}
		ok, err := del(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("%s %d not found", kindName(kind), id)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted %s %d", kindName(kind), id)), nil
	}
}

func listHandler(b *backend, kind models.Kind) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		switch kind {
		case models.KindEpic:
			return jsonResult(models.NewRecords(b.m.Epics()))
		case models.KindSubtask:
			return jsonResult(models.NewRecords(b.m.Subtasks()))
		default:
			return jsonResult(models.NewRecords(b.m.Tasks()))
		}
	}
}

func getEpicSubtasksHandler(b *backend) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, _ := number(arguments(request), "id")

		b.mu.Lock()
		defer b.mu.Unlock()
		return jsonResult(models.NewRecords(b.m.EpicSubtasks(id)))
	}
}

func prioritizedHandler(b *backend) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		return jsonResult(models.ItemRecords(b.m.Prioritized()))
	}
}

func historyHandler(b *backend) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		return jsonResult(models.ItemRecords(b.m.History()))
	}
}

func deleteAllHandler(b *backend) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, _ := arguments(request)["kind"].(string)
		kind, err := parseKind(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		switch kind {
		case models.KindTask:
			err = b.m.DeleteAllTasks(ctx)
		case models.KindEpic:
			err = b.m.DeleteAllEpics(ctx)
		case models.KindSubtask:
			err = b.m.DeleteAllSubtasks(ctx)
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted all %ss", kindName(kind))), nil
	}
}
