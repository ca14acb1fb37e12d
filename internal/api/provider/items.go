package provider

import "time"

// IntegrationItem is the normalized representation of a provider record.
type IntegrationItem struct {
	ID               string                 `json:"id"`
	Type             string                 `json:"type"`
	IntegrationType  string                 `json:"integration_type"`
	Name             string                 `json:"name"`
	Description      string                 `json:"description,omitempty"`
	URL              string                 `json:"url,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	CreationTime     *time.Time             `json:"creation_time,omitempty"`
	LastModifiedTime *time.Time             `json:"last_modified_time,omitempty"`
	Directory        bool                   `json:"directory"`
	ParentID         string                 `json:"parent_id,omitempty"`
	ParentPathOrName string                 `json:"parent_path_or_name,omitempty"`
}

type ResourceStatus string

const (
	ResourceOK      ResourceStatus = "ok"
	ResourceSkipped ResourceStatus = "skipped"
)

// ResourceResult reports how fetching one resource type went.
type ResourceResult struct {
	Resource   string         `json:"resource"`
	Status     ResourceStatus `json:"status"`
	Count      int            `json:"count"`
	HTTPStatus int            `json:"http_status,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

type ItemList struct {
	Items     []IntegrationItem `json:"items"`
	Resources []ResourceResult  `json:"resources"`
}
