package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"aem-portal-sync/internal/common"
	"aem-portal-sync/internal/interfaces"
	"aem-portal-sync/internal/models"

	"github.com/go-resty/resty/v2"
)

const wikiAPIVersion = "7.0"

type wikiClient struct {
	client  *resty.Client
	org     string
	project string
	wikiID  string
}

// NewWikiClient builds the Azure DevOps wiki client. Authentication is
// HTTP Basic with an empty username and the PAT as password, on every
// call.
func NewWikiClient(config *common.WikiConfig) interfaces.WikiClient {
	baseURL := fmt.Sprintf("https://dev.azure.com/%s/%s", config.Organization, config.Project)

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth("", config.PAT).
		SetTimeout(time.Duration(timeout) * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &wikiClient{
		client:  client,
		org:     config.Organization,
		project: config.Project,
		wikiID:  config.WikiID,
	}
}

// wikiPageNode is the hierarchical tree shape returned by the pages API.
type wikiPageNode struct {
	ID          int            `json:"id"`
	Path        string         `json:"path"`
	GitItemPath string         `json:"gitItemPath"`
	SubPages    []wikiPageNode `json:"subPages"`
}

// wikiPageContent is the single-page response when includeContent is set.
type wikiPageContent struct {
	Content string `json:"content"`
}

func (wc *wikiClient) pagesEndpoint() string {
	return fmt.Sprintf("/_apis/wiki/wikis/%s/pages", wc.wikiID)
}

func (wc *wikiClient) ListPages(ctx context.Context) ([]models.WikiPageRef, error) {
	var root wikiPageNode

	resp, err := wc.client.R().
		SetContext(ctx).
		SetQueryParam("recursionLevel", "full").
		SetQueryParam("api-version", wikiAPIVersion).
		SetResult(&root).
		Get(wc.pagesEndpoint())

	if err != nil {
		return nil, common.WrapError(err, common.ErrorTypeWikiFetch, "failed to list wiki pages")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, common.NewWikiFetchError(
			fmt.Sprintf("wiki API returned status %d listing pages: %s", resp.StatusCode(), resp.String()))
	}

	return flattenPageTree(&root, nil), nil
}

func (wc *wikiClient) GetPageContent(ctx context.Context, path string) (string, error) {
	var page wikiPageContent

	resp, err := wc.client.R().
		SetContext(ctx).
		SetQueryParam("path", path).
		SetQueryParam("includeContent", "true").
		SetQueryParam("api-version", wikiAPIVersion).
		SetResult(&page).
		Get(wc.pagesEndpoint())

	if err != nil {
		return "", common.WrapError(err, common.ErrorTypeWikiFetch,
			fmt.Sprintf("failed to fetch wiki page %s", path))
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", common.NewWikiNotFoundError(fmt.Sprintf("wiki page not found: %s", path))
	}
	if resp.StatusCode() != http.StatusOK {
		return "", common.NewWikiFetchError(
			fmt.Sprintf("wiki API returned status %d for page %s", resp.StatusCode(), path))
	}

	return page.Content, nil
}

// PageURL is the human-facing browse URL stamped on synced entities.
func (wc *wikiClient) PageURL(path string) string {
	return fmt.Sprintf("https://dev.azure.com/%s/%s/_wiki/wikis/%s?pagePath=%s",
		wc.org, wc.project, wc.wikiID, url.QueryEscape(path))
}

// flattenPageTree walks the tree in pre-order, emitting a ref for every
// node that carries a path. The root node of a wiki has no path and is
// excluded.
func flattenPageTree(node *wikiPageNode, pages []models.WikiPageRef) []models.WikiPageRef {
	if node.Path != "" {
		pages = append(pages, models.WikiPageRef{
			ID:          node.ID,
			Path:        node.Path,
			GitItemPath: node.GitItemPath,
		})
	}
	for i := range node.SubPages {
		pages = flattenPageTree(&node.SubPages[i], pages)
	}
	return pages
}
