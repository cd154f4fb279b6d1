package tasks

import (
	"context"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-planner-bot/core"
	"github.com/goliatone/go-planner-bot/providers/google/common"
	"google.golang.org/api/option"
	gtasks "google.golang.org/api/tasks/v1"
)

const (
	ServiceName    = "tasks"
	DefaultTimeout = 20 * time.Second
)

// Client inserts tasks through the Tasks v1 API.
type Client struct {
	Service *gtasks.Service
	Timeout time.Duration
}

func New(ctx context.Context, timeout time.Duration, opts ...option.ClientOption) (*Client, error) {
	service, err := gtasks.NewService(ctx, opts...)
	if err != nil {
		return nil, common.APIError(ServiceName, err, nil)
	}
	return &Client{Service: service, Timeout: timeout}, nil
}

// CreateTask inserts on req.TaskListID, or on the first list of the account
// when no list is given.
func (c *Client) CreateTask(ctx context.Context, req core.CreateTaskRequest) (core.CreatedTask, error) {
	if c == nil || c.Service == nil {
		return core.CreatedTask{}, goerrors.New("tasks: service is required", goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.PlannerErrorInternal)
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	listID := strings.TrimSpace(req.TaskListID)
	if listID == "" {
		resolved, err := c.firstTaskList(callCtx)
		if err != nil {
			return core.CreatedTask{}, err
		}
		listID = resolved
	}

	task := &gtasks.Task{Title: req.Title, Notes: req.Notes}
	if req.Due != nil {
		task.Due = dueDate(*req.Due)
	}
	created, err := c.Service.Tasks.Insert(listID, task).Context(callCtx).Do()
	if err != nil {
		return core.CreatedTask{}, common.APIError(ServiceName, err, map[string]any{"tasklist_id": listID})
	}
	return core.CreatedTask{ID: created.Id, TaskListID: listID, Title: req.Title, Due: req.Due}, nil
}

func (c *Client) firstTaskList(ctx context.Context) (string, error) {
	lists, err := c.Service.Tasklists.List().Context(ctx).Do()
	if err != nil {
		return "", common.APIError(ServiceName, err, nil)
	}
	for _, list := range lists.Items {
		if list != nil && strings.TrimSpace(list.Id) != "" {
			return list.Id, nil
		}
	}
	return "", goerrors.New("tasks: no task lists available", goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(core.PlannerErrorExternalFailure)
}

// dueDate keeps the local calendar date. The API stores only the date part of
// due, read as UTC, so a local midnight converted to UTC would land a day
// early east of Greenwich.
func dueDate(due time.Time) string {
	return time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
}

var _ core.TaskCreator = (*Client)(nil)
