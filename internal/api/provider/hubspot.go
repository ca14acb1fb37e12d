package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/supabase/integrations/internal/api/apierrors"
	"github.com/supabase/integrations/internal/conf"
	"github.com/supabase/integrations/internal/observability"
	"github.com/supabase/integrations/internal/utilities"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

const (
	HubSpotProviderName = "hubspot"

	defaultHubSpotAppBase = "app.hubspot.com"
	defaultHubSpotAPIBase = "api.hubapi.com"

	defaultHubSpotPageSize = 10
)

var resourceFetchCounter = observability.ObtainMetricCounter(
	"integration_resource_fetch_total",
	"Number of provider resource list calls by outcome",
)

type hubspotResource struct {
	name         string
	itemType     string
	path         string
	objectTypeID string
	directory    bool
	properties   []string
	project      func(hubspotObject) (name, description string)
}

var hubspotResources = []hubspotResource{
	{
		name:         "contacts",
		itemType:     "contact",
		path:         "/crm/v3/objects/contacts",
		objectTypeID: "0-1",
		properties:   []string{"firstname", "lastname", "email", "phone", "company", "website", "associatedcompanyid", "createdate", "lastmodifieddate"},
		project:      projectHubSpotContact,
	},
	{
		name:         "companies",
		itemType:     "company",
		path:         "/crm/v3/objects/companies",
		objectTypeID: "0-2",
		directory:    true,
		properties:   []string{"name", "domain", "website", "phone", "industry", "createdate", "hs_lastmodifieddate"},
		project:      projectHubSpotCompany,
	},
}

type hubspotObject struct {
	ID         string                 `json:"id"`
	Properties map[string]interface{} `json:"properties"`
	CreatedAt  string                 `json:"createdAt"`
	UpdatedAt  string                 `json:"updatedAt"`
	Archived   bool                   `json:"archived"`
}

func (o hubspotObject) prop(key string) string {
	if v, ok := o.Properties[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

type hubspotListResponse struct {
	Results []hubspotObject `json:"results"`
}

type hubspotErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

type hubspotProvider struct {
	*oauth2.Config
	APIHost  string
	AppHost  string
	PageSize int

	client *http.Client
}

// NewHubSpotProvider creates a HubSpot CRM integration.
func NewHubSpotProvider(ext conf.OAuthProviderConfiguration, ic conf.IntegrationsConfiguration) (IntegrationProvider, error) {
	if err := ext.ValidateOAuth(); err != nil {
		return nil, err
	}

	appHost := chooseHost(ext.URL, defaultHubSpotAppBase)
	apiHost := chooseHost(ext.ApiURL, defaultHubSpotAPIBase)

	pageSize := ic.PageSize
	if pageSize <= 0 {
		pageSize = defaultHubSpotPageSize
	}

	return &hubspotProvider{
		Config: &oauth2.Config{
			ClientID:     ext.ClientID[0],
			ClientSecret: ext.Secret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   appHost + "/oauth/authorize",
				TokenURL:  apiHost + "/oauth/v1/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: ext.RedirectURI,
			Scopes:      ext.Scopes,
		},
		APIHost:  apiHost,
		AppHost:  appHost,
		PageSize: pageSize,
		client:   newHTTPClient(ic.HTTPTimeout),
	}, nil
}

func (p *hubspotProvider) Name() string {
	return HubSpotProviderName
}

func (p *hubspotProvider) GetOAuthToken(ctx context.Context, code string) (*Credentials, error) {
	client, reply := recordingClient(p.client)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, client)

	tok, err := p.Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			return nil, apierrors.NewUpstreamError(rerr.Response.StatusCode, "Token exchange failed: %s", retrieveErrorDetail(rerr)).WithInternalError(err)
		}
		if isTimeout(err) {
			return nil, apierrors.NewHTTPError(http.StatusGatewayTimeout, apierrors.ErrorCodeRequestTimeout, "Token exchange timed out").WithInternalError(err)
		}
		return nil, apierrors.NewUpstreamError(http.StatusBadGateway, "Token exchange failed").WithInternalError(err)
	}

	return credentialsFromToken(tok, reply.body), nil
}

func retrieveErrorDetail(rerr *oauth2.RetrieveError) string {
	var body hubspotErrorResponse
	if err := json.Unmarshal(rerr.Body, &body); err == nil && body.Message != "" {
		return body.Message
	}
	if rerr.ErrorDescription != "" {
		return rerr.ErrorDescription
	}
	if rerr.ErrorCode != "" {
		return rerr.ErrorCode
	}
	if len(rerr.Body) > 0 {
		return string(rerr.Body)
	}
	return rerr.Response.Status
}

// ListItems fetches the first page of every supported CRM object type. A
// failing resource is reported as skipped and does not hide the others.
func (p *hubspotProvider) ListItems(ctx context.Context, creds *Credentials) (*ItemList, error) {
	if creds == nil || creds.AccessToken == "" {
		return nil, apierrors.NewUnauthorizedError(apierrors.ErrorCodeNoAccessToken, "Credentials are missing an access token")
	}

	items := make([][]IntegrationItem, len(hubspotResources))
	results := make([]ResourceResult, len(hubspotResources))

	var g errgroup.Group
	for i, res := range hubspotResources {
		i, res := i, res
		g.Go(func() error {
			items[i], results[i] = p.fetchResource(ctx, creds, res)
			return nil
		})
	}
	_ = g.Wait()

	list := &ItemList{
		Items:     make([]IntegrationItem, 0),
		Resources: results,
	}
	for _, batch := range items {
		list.Items = append(list.Items, batch...)
	}
	return list, nil
}

func (p *hubspotProvider) fetchResource(ctx context.Context, creds *Credentials, res hubspotResource) ([]IntegrationItem, ResourceResult) {
	result := ResourceResult{Resource: res.name, Status: ResourceSkipped}

	objects, status, err := p.listObjects(ctx, creds.AccessToken, res)
	result.HTTPStatus = status
	if err != nil {
		result.Reason = err.Error()
		observability.GetLogEntryFromContext(ctx).WithFields(logrus.Fields{
			"component":   "hubspot",
			"resource":    res.name,
			"http_status": status,
		}).WithError(err).Warn("skipping resource")
		resourceFetchCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("resource", res.name),
			attribute.String("status", string(ResourceSkipped)),
		))
		return nil, result
	}

	items := make([]IntegrationItem, 0, len(objects))
	for _, obj := range objects {
		items = append(items, p.toItem(res, obj, creds.HubID))
	}

	result.Status = ResourceOK
	result.Count = len(items)
	resourceFetchCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", res.name),
		attribute.String("status", string(ResourceOK)),
	))
	return items, result
}

func (p *hubspotProvider) listObjects(ctx context.Context, accessToken string, res hubspotResource) ([]hubspotObject, int, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(p.PageSize))
	query.Set("properties", strings.Join(res.properties, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.APIHost+res.path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer utilities.SafeClose(resp.Body)

	body, err := utilities.ReadLimited(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	if resp.StatusCode != http.StatusOK {
		var herr hubspotErrorResponse
		if jerr := json.Unmarshal(body, &herr); jerr == nil && herr.Message != "" {
			return nil, resp.StatusCode, fmt.Errorf("hubspot returned %d: %s", resp.StatusCode, herr.Message)
		}
		return nil, resp.StatusCode, fmt.Errorf("hubspot returned %d", resp.StatusCode)
	}

	var list hubspotListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decoding %s response: %w", res.name, err)
	}
	return list.Results, resp.StatusCode, nil
}

func (p *hubspotProvider) toItem(res hubspotResource, obj hubspotObject, hubID PortalID) IntegrationItem {
	name, description := res.project(obj)

	metadata := make(map[string]interface{}, len(obj.Properties)+2)
	for k, v := range obj.Properties {
		if v != nil {
			metadata[k] = v
		}
	}
	metadata["hubspot_id"] = obj.ID
	if obj.Archived {
		metadata["archived"] = true
	}

	item := IntegrationItem{
		ID:               obj.ID,
		Type:             res.itemType,
		IntegrationType:  HubSpotProviderName,
		Name:             name,
		Description:      description,
		URL:              p.recordURL(res, obj.ID, hubID),
		Metadata:         metadata,
		CreationTime:     parseHubSpotTime(obj.CreatedAt, obj.prop("createdate")),
		LastModifiedTime: parseHubSpotTime(obj.UpdatedAt, obj.prop("lastmodifieddate"), obj.prop("hs_lastmodifieddate")),
		Directory:        res.directory,
	}

	// contacts hang off their primary company
	if companyID := obj.prop("associatedcompanyid"); companyID != "" {
		item.ParentID = companyID
		item.ParentPathOrName = obj.prop("company")
	}
	return item
}

func (p *hubspotProvider) recordURL(res hubspotResource, id string, hubID PortalID) string {
	if id == "" {
		return ""
	}
	if hubID != "" {
		return fmt.Sprintf("%s/contacts/%s/record/%s/%s", p.AppHost, url.PathEscape(string(hubID)), res.objectTypeID, url.PathEscape(id))
	}
	return fmt.Sprintf("%s/%s/%s", p.AppHost, res.name, url.PathEscape(id))
}

func projectHubSpotContact(obj hubspotObject) (string, string) {
	name := strings.TrimSpace(obj.prop("firstname") + " " + obj.prop("lastname"))
	email := obj.prop("email")
	if name == "" {
		name = email
	}
	if name == "" {
		name = "Unnamed Contact"
	}

	if email == "" {
		email = "N/A"
	}
	return name, "Email: " + email
}

func projectHubSpotCompany(obj hubspotObject) (string, string) {
	name := obj.prop("name")
	if name == "" {
		name = "Unnamed Company"
	}

	website := obj.prop("website")
	if website == "" {
		website = "N/A"
	}
	return name, "Website: " + website
}

func parseHubSpotTime(values ...string) *time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			t = t.UTC()
			return &t
		}
		// hubspot also reports epoch milliseconds for some date properties
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			t := time.UnixMilli(ms).UTC()
			return &t
		}
	}
	return nil
}
