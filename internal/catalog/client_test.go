package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPageParamsAndEnvelope(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/3/action/package_search", r.URL.Path)
		gotQuery = map[string]string{
			"rows":  r.URL.Query().Get("rows"),
			"start": r.URL.Query().Get("start"),
			"sort":  r.URL.Query().Get("sort"),
			"fq":    r.URL.Query().Get("fq"),
		}
		fmt.Fprint(w, `{"result": {"results": [{"id": "ds-1"}, {"id": "ds-2"}]}}`)
	}))
	defer server.Close()

	client := NewClient("")
	page, err := client.SearchPage(context.Background(), server.URL, []string{"organization:org-a", "-groups:group-x"}, 100, 50, false)
	require.NoError(t, err)

	assert.Equal(t, "50", gotQuery["rows"])
	assert.Equal(t, "100", gotQuery["start"])
	assert.Equal(t, "id asc", gotQuery["sort"])
	assert.Equal(t, "organization:org-a -groups:group-x", gotQuery["fq"])

	require.Len(t, page.Records, 2)
	assert.Equal(t, "ds-1", page.Records[0].ID())
	assert.Equal(t, "ds-2", page.Records[1].ID())
	assert.NotEmpty(t, page.Raw)
}

func TestSearchPageLegacyVersionNoEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/2/action/package_search", r.URL.Path)
		fmt.Fprint(w, `{"results": [{"id": "ds-1"}]}`)
	}))
	defer server.Close()

	client := NewClient("", WithActionAPIVersion(2))
	page, err := client.SearchPage(context.Background(), server.URL, nil, 0, 100, false)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
}

func TestSearchPageMissingResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": true}`)
	}))
	defer server.Close()

	client := NewClient("")
	_, err := client.SearchPage(context.Background(), server.URL, nil, 0, 100, false)
	require.Error(t, err)

	var searchErr *SearchError
	assert.ErrorAs(t, err, &searchErr)
}

func TestSearchPageNotJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>maintenance</html>")
	}))
	defer server.Close()

	client := NewClient("")
	_, err := client.SearchPage(context.Background(), server.URL, nil, 0, 100, false)

	var searchErr *SearchError
	assert.ErrorAs(t, err, &searchErr)
}

func TestSpatialSearchPolyAndBox(t *testing.T) {
	var gotPoly, gotBBox, gotCRS string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/2/search/dataset/geo", r.URL.Path)
		gotPoly = r.URL.Query().Get("poly")
		gotBBox = r.URL.Query().Get("bbox")
		gotCRS = r.URL.Query().Get("crs")
		fmt.Fprint(w, `{"results": ["ds-1", "ds-3"]}`)
	}))
	defer server.Close()

	client := NewClient("")

	ids, err := client.SpatialSearch(context.Background(), server.URL, "POLYGON((-1 1, -2 2, -3 3))", 4326)
	require.NoError(t, err)
	assert.Equal(t, "POLYGON((-1 1, -2 2, -3 3))", gotPoly)
	assert.Empty(t, gotBBox)
	assert.Equal(t, "4326", gotCRS)
	assert.Len(t, ids, 2)
	_, ok := ids["ds-1"]
	assert.True(t, ok)

	_, err = client.SpatialSearch(context.Background(), server.URL, "BOX(-134.0,47.0,-123.0,55.0)", 4326)
	require.NoError(t, err)
	assert.Equal(t, "-134.0,47.0,-123.0,55.0", gotBBox)
}

func TestGetGroupAndOrganization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/3/action/group_show":
			require.Equal(t, "coastal", r.URL.Query().Get("id"))
			fmt.Fprint(w, `{"result": {"id": "g-1", "name": "coastal", "title": "Coastal", "users": [{"name": "admin"}]}}`)
		case "/api/3/action/organization_show":
			http.NotFound(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient("")

	group, err := client.GetGroup(context.Background(), server.URL, "coastal")
	require.NoError(t, err)
	assert.Equal(t, "g-1", group.ID)
	assert.Equal(t, "coastal", group.Name)

	_, err = client.GetOrganization(context.Background(), server.URL, "missing-org")
	require.Error(t, err)

	var resourceErr *RemoteResourceError
	require.ErrorAs(t, err, &resourceErr)
	assert.Equal(t, "organization", resourceErr.Resource)
}

func TestGroupCreateTransformsDropServerFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result": {"id": "g-1", "name": "coastal", "title": "Coastal", "type": "group",
			"created": "2020-01-01", "display_name": "Coastal", "packages": 12,
			"users": [{"name": "admin"}], "tags": [{"name": "sea"}]}}`)
	}))
	defer server.Close()

	client := NewClient("")
	group, err := client.GetGroup(context.Background(), server.URL, "coastal")
	require.NoError(t, err)

	create := group.ToGroupCreate()
	assert.Equal(t, "g-1", create.ID)
	assert.Equal(t, "coastal", create.Name)
	assert.Equal(t, "group", create.Type)

	orgCreate := group.ToOrganizationCreate()
	assert.Equal(t, "coastal", orgCreate.Name)
}
