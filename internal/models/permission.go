package models

// ResourceEntity names a resource type permissions are evaluated against
type ResourceEntity string

const (
	ResourceClassification ResourceEntity = "classification"
	ResourceTag            ResourceEntity = "tag"
	ResourceFeed           ResourceEntity = "feed"
)

// Operation names a permission-gated operation
type Operation string

const (
	OperationCreate          Operation = "Create"
	OperationDelete          Operation = "Delete"
	OperationViewAll         Operation = "ViewAll"
	OperationViewBasic       Operation = "ViewBasic"
	OperationEditAll         Operation = "EditAll"
	OperationEditDescription Operation = "EditDescription"
	OperationEditDisplayName Operation = "EditDisplayName"
	OperationEditTags        Operation = "EditTags"
)

// OperationPermission is the set of operations allowed on one resource
type OperationPermission struct {
	Create          bool `json:"Create"`
	Delete          bool `json:"Delete"`
	ViewAll         bool `json:"ViewAll"`
	ViewBasic       bool `json:"ViewBasic"`
	EditAll         bool `json:"EditAll"`
	EditDescription bool `json:"EditDescription"`
	EditDisplayName bool `json:"EditDisplayName"`
	EditTags        bool `json:"EditTags"`
}

// Allows reports whether op is granted
func (p OperationPermission) Allows(op Operation) bool {
	switch op {
	case OperationCreate:
		return p.Create
	case OperationDelete:
		return p.Delete
	case OperationViewAll:
		return p.ViewAll
	case OperationViewBasic:
		return p.ViewBasic || p.ViewAll
	case OperationEditAll:
		return p.EditAll
	case OperationEditDescription:
		return p.EditDescription || p.EditAll
	case OperationEditDisplayName:
		return p.EditDisplayName || p.EditAll
	case OperationEditTags:
		return p.EditTags || p.EditAll
	default:
		return false
	}
}

// ResourcePermission pairs a resource type with its permission set
type ResourcePermission struct {
	Resource   ResourceEntity      `json:"resource"`
	Permission OperationPermission `json:"permission"`
}
