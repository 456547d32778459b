package browser

import (
	"errors"
	"strings"

	"github.com/benvon/tag-catalog/internal/catalog"
)

// MessageKey identifies a localizable string
type MessageKey string

const (
	MsgEntityFetchError   MessageKey = "server.entity-fetch-error"
	MsgCreateEntityError  MessageKey = "server.create-entity-error"
	MsgUpdateEntityError  MessageKey = "server.entity-updating-error"
	MsgDeleteEntityError  MessageKey = "server.delete-entity-error"
	MsgUnexpectedResponse MessageKey = "server.unexpected-response"
	MsgNoPermission       MessageKey = "message.no-permission-for-action"

	LabelEnable           MessageKey = "label.enable"
	LabelDisable          MessageKey = "label.disable"
	LabelClassification   MessageKey = "label.tag-category-lowercase"
	LabelTag              MessageKey = "label.tag-lowercase"
	LabelTagPlural        MessageKey = "label.tag-plural"
	LabelPermissionPlural MessageKey = "label.permission-plural"
)

// Messages maps keys to templates. A template may reference {{entity}}.
type Messages map[MessageKey]string

// English is the default catalog
var English = Messages{
	MsgEntityFetchError:   "Error while fetching {{entity}}!",
	MsgCreateEntityError:  "Error while creating {{entity}}!",
	MsgUpdateEntityError:  "Error while updating {{entity}}!",
	MsgDeleteEntityError:  "Error while deleting {{entity}}!",
	MsgUnexpectedResponse: "Unexpected response from server!",
	MsgNoPermission:       "You do not have permission for this action.",
	LabelEnable:           "Enable",
	LabelDisable:          "Disable",
	LabelClassification:   "classification",
	LabelTag:              "tag",
	LabelTagPlural:        "tags",
	LabelPermissionPlural: "permissions",
}

// Text returns the message for key. Unknown keys render as the key itself.
func (m Messages) Text(key MessageKey) string {
	if s, ok := m[key]; ok {
		return s
	}
	return string(key)
}

// Entity renders key with its {{entity}} placeholder replaced by the text of entity
func (m Messages) Entity(key, entity MessageKey) string {
	return strings.ReplaceAll(m.Text(key), "{{entity}}", m.Text(entity))
}

// ErrorKind classifies a failure surfaced to the user
type ErrorKind int

const (
	FetchFailed ErrorKind = iota + 1
	CreateFailed
	UpdateFailed
	DeleteFailed
	UnexpectedEmptyResponse
)

func (k ErrorKind) String() string {
	switch k {
	case FetchFailed:
		return "fetch_failed"
	case CreateFailed:
		return "create_failed"
	case UpdateFailed:
		return "update_failed"
	case DeleteFailed:
		return "delete_failed"
	case UnexpectedEmptyResponse:
		return "unexpected_empty_response"
	default:
		return "unknown"
	}
}

// errorText prefers the server's explanation and falls back to the localized message
func errorText(err error, fallback string) string {
	var apiErr *catalog.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
