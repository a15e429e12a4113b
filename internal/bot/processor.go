package bot

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/taskflow/internal/models"
	"github.com/thereayou/taskflow/internal/repository"
)

// Ответы бота. Процессор никогда не возвращает ошибку через свою
// границу: каждая ветка, включая сбои хранилища, сводится к строке.
const (
	ReplyUnauthorized  = "Project not found or unauthorized"
	ReplyCreateUsage   = "Usage: /create-task <title> <description>"
	ReplyDeleteUsage   = "Usage: /delete-task <taskId>"
	ReplyTaskNotFound  = "Task not found"
	ReplyNoTasks       = "No tasks found"
	ReplyUnknown       = "Unknown command. Available commands: /create-task, /delete-task, /list-tasks"
	ReplyInternalError = "An error occurred while processing your command"
)

// listLimit ограничивает выдачу list-tasks
const listLimit = 10

// Command задает закрытое множество глаголов бота
type Command int

const (
	CommandUnknown Command = iota
	CommandCreateTask
	CommandDeleteTask
	CommandListTasks
)

// ParseCommand распознаёт глагол команды; регистр значим
func ParseCommand(verb string) Command {
	switch verb {
	case "create-task":
		return CommandCreateTask
	case "delete-task":
		return CommandDeleteTask
	case "list-tasks":
		return CommandListTasks
	default:
		return CommandUnknown
	}
}

// Repository описывает срез хранилища, нужный процессору команд
type Repository interface {
	IsProjectMember(projectID, userID uuid.UUID) (bool, error)
	CreateTask(task *models.Task) error
	DeleteTask(taskID, projectID uuid.UUID) (*models.Task, error)
	TasksByProject(projectID uuid.UUID, limit int) ([]models.Task, error)
}

// Processor выполняет команды бота над задачами проекта
type Processor struct {
	repo Repository
}

func NewProcessor(repo Repository) *Processor {
	return &Processor{repo: repo}
}

// Process разбирает и выполняет команду от имени пользователя.
// Неучастник проекта получает отказ до какой-либо мутации.
func (p *Processor) Process(projectID, userID uuid.UUID, raw string) string {
	member, err := p.repo.IsProjectMember(projectID, userID)
	if err != nil {
		log.Printf("Bot command membership check failed: %v", err)
		return ReplyInternalError
	}
	if !member {
		return ReplyUnauthorized
	}

	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ReplyUnknown
	}
	verb, args := fields[0], fields[1:]

	switch ParseCommand(verb) {
	case CommandCreateTask:
		return p.createTask(projectID, userID, args)

	case CommandDeleteTask:
		return p.deleteTask(projectID, args)

	case CommandListTasks:
		return p.listTasks(projectID)

	default:
		return ReplyUnknown
	}
}

func (p *Processor) createTask(projectID, userID uuid.UUID, args []string) string {
	if len(args) < 2 {
		return ReplyCreateUsage
	}

	task := &models.Task{
		ProjectID:   projectID,
		Title:       args[0],
		Description: strings.Join(args[1:], " "),
		Status:      models.StatusPending,
		Progress:    0,
		CreatedBy:   userID,
		CreatedAt:   time.Now(),
	}

	if err := p.repo.CreateTask(task); err != nil {
		log.Printf("Bot create-task failed: %v", err)
		return ReplyInternalError
	}

	return "Task created: " + task.Title
}

func (p *Processor) deleteTask(projectID uuid.UUID, args []string) string {
	if len(args) < 1 {
		return ReplyDeleteUsage
	}

	// Непарсящийся id неотличим от несуществующего
	taskID, err := uuid.Parse(args[0])
	if err != nil {
		return ReplyTaskNotFound
	}

	task, err := p.repo.DeleteTask(taskID, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ReplyTaskNotFound
		}
		log.Printf("Bot delete-task failed: %v", err)
		return ReplyInternalError
	}

	return "Task deleted: " + task.Title
}

func (p *Processor) listTasks(projectID uuid.UUID) string {
	tasks, err := p.repo.TasksByProject(projectID, listLimit)
	if err != nil {
		log.Printf("Bot list-tasks failed: %v", err)
		return ReplyInternalError
	}

	if len(tasks) == 0 {
		return ReplyNoTasks
	}

	lines := make([]string, len(tasks))
	for i, t := range tasks {
		lines[i] = fmt.Sprintf("%s (%s - %d%%)", t.Title, t.Status, t.Progress)
	}
	return strings.Join(lines, "\n")
}
