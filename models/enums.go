// ABOUTME: Status, priority and type enumerations shared by screens and services
// ABOUTME: Ordered slices drive kanban column order and form choices
package models

import "strings"

type DealStatus string

const (
	DealLead        DealStatus = "lead"
	DealQualified   DealStatus = "qualified"
	DealProposal    DealStatus = "proposal"
	DealNegotiation DealStatus = "negotiation"
	DealWon         DealStatus = "won"
	DealLost        DealStatus = "lost"
)

// DealStatuses lists deal statuses in pipeline order.
var DealStatuses = []DealStatus{DealLead, DealQualified, DealProposal, DealNegotiation, DealWon, DealLost}

func (s DealStatus) Label() string { return titleCase(string(s)) }

// Closed reports whether the deal left the pipeline.
func (s DealStatus) Closed() bool { return s == DealWon || s == DealLost }

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
)

var TaskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskReview, TaskDone}

func (s TaskStatus) Label() string {
	if s == TaskTodo {
		return "To Do"
	}
	return titleCase(string(s))
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

var TaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p TaskPriority) Label() string { return titleCase(string(p)) }

type EventType string

const (
	EventMeeting  EventType = "meeting"
	EventCall     EventType = "call"
	EventTask     EventType = "task"
	EventReminder EventType = "reminder"
	EventOther    EventType = "other"
)

var EventTypes = []EventType{EventMeeting, EventCall, EventTask, EventReminder, EventOther}

func (t EventType) Label() string { return titleCase(string(t)) }

type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

type EmailFolder string

const (
	FolderInbox   EmailFolder = "inbox"
	FolderSent    EmailFolder = "sent"
	FolderDrafts  EmailFolder = "drafts"
	FolderArchive EmailFolder = "archive"
	FolderTrash   EmailFolder = "trash"
)

var EmailFolders = []EmailFolder{FolderInbox, FolderSent, FolderDrafts, FolderArchive, FolderTrash}

func (f EmailFolder) Label() string { return titleCase(string(f)) }

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ParseDealStatus matches a status by value or label, ignoring case.
func ParseDealStatus(s string) (DealStatus, bool) {
	for _, st := range DealStatuses {
		if strings.EqualFold(s, string(st)) || strings.EqualFold(s, st.Label()) {
			return st, true
		}
	}
	return "", false
}

// ParseTaskStatus matches a status by value or label, ignoring case.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	for _, st := range TaskStatuses {
		if strings.EqualFold(s, string(st)) || strings.EqualFold(s, st.Label()) {
			return st, true
		}
	}
	return "", false
}
