package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unt-libraries/coda/internal/config"
	"github.com/unt-libraries/coda/internal/db"
	"github.com/unt-libraries/coda/internal/db/models"
	"github.com/unt-libraries/coda/internal/oai"
	"github.com/unt-libraries/coda/internal/services"
	"github.com/unt-libraries/coda/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int

type testServer struct {
	engine    *gin.Engine
	bags      *services.BagService
	nodes     *services.NodeService
	queue     *services.QueueService
	validates *services.ValidateService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:api_test_%d?mode=memory&cache=shared", testDBCounter)

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	cfg := &config.Configuration{
		Site: config.SiteConfig{
			Name:   "Coda",
			Domain: "coda.example.com",
		},
		Feeds: config.FeedConfig{
			BagPageSize:      20,
			NodePageSize:     15,
			QueuePageSize:    10,
			ValidatePageSize: 20,
			PublicPageSize:   20,
		},
		Validation: config.ValidationConfig{PeriodDays: 365},
		OAI: config.OAIConfig{
			RepositoryName:    "Coda Repository",
			AdminEmails:       []string{"coda@example.com"},
			EarliestDatestamp: "2004-05-19T00:00:00Z",
			BatchSize:         500,
		},
	}

	zapLogger := zap.NewNop()
	collector := metrics.NewMetricsCollector()
	bagService := services.NewBagService(gdb, zapLogger, collector)
	nodeService := services.NewNodeService(gdb, zapLogger, collector)
	queueService := services.NewQueueService(gdb, zapLogger, collector)
	validateService := services.NewValidateService(gdb, zapLogger, collector, &cfg.Validation)
	repository := oai.NewRepository(bagService, cfg, zapLogger)

	router := NewRouter(cfg, zapLogger, collector,
		bagService, nodeService, queueService, validateService, repository)
	router.SetupRoutes()

	return &testServer{
		engine:    router.GetEngine(),
		bags:      bagService,
		nodes:     nodeService,
		queue:     queueService,
		validates: validateService,
	}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	recorder := httptest.NewRecorder()
	s.engine.ServeHTTP(recorder, req)
	return recorder
}

func bagEntry(name string) string {
	return `<entry><title>` + name + `</title><content type="application/xml">` +
		`<codaXML xmlns="http://digital2.library.unt.edu/coda/bagxml/">` +
		`<name>` + name + `</name>` +
		`<fileCount>3</fileCount>` +
		`<payloadSize>1500</payloadSize>` +
		`<bagitVersion>0.96</bagitVersion>` +
		`<baggingDate>2015-01-01</baggingDate>` +
		`<bagInfo>` +
		`<item><name>Bagging-Date</name><body>2015-01-01</body></item>` +
		`<item><name>External-Identifier</name><body>ark:/67531/metadc000001</body></item>` +
		`</bagInfo></codaXML></content></entry>`
}

func queueEntry(ark string) string {
	return `<entry><content>` +
		`<queueEntry xmlns="http://digital2.library.unt.edu/coda/queuexml/">` +
		`<ark>` + ark + `</ark>` +
		`<oxum>1500.3</oxum>` +
		`<urlListLink>http://example.com/url-list</urlListLink>` +
		`<status>3</status>` +
		`</queueEntry></content></entry>`
}

func validateEntry(identifier string) string {
	return `<entry><content>` +
		`<validate xmlns="http://digital2.library.unt.edu/coda/validatexml/">` +
		`<identifier>` + identifier + `</identifier>` +
		`</validate></content></entry>`
}

func nodeEntry(name string) string {
	return `<entry><content><node>` +
		`<name>` + name + `</name>` +
		`<capacity>1000</capacity>` +
		`<size>100</size>` +
		`<path>/data/` + name + `</path>` +
		`<url>http://example.com/` + name + `/</url>` +
		`</node></content></entry>`
}

func TestBagLifecycle(t *testing.T) {
	server := newTestServer(t)
	ark := "ark:/67531/coda2"

	resp := server.do(http.MethodPost, "/APP/bag/", bagEntry(ark))
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "http://example.com/APP/bag/"+ark+"/", resp.Header().Get("Location"))
	assert.Contains(t, resp.Body.String(), "<name>"+ark+"</name>")

	resp = server.do(http.MethodPost, "/APP/bag/", bagEntry(ark))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "Conflict with already-existing resource.\n", resp.Body.String())

	resp = server.do(http.MethodGet, "/APP/bag/"+ark+"/", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/atom+xml", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Body.String(), "<fileCount>3</fileCount>")
	// info fields come back in submission order
	body := resp.Body.String()
	first := strings.Index(body, "<name>Bagging-Date</name>")
	second := strings.Index(body, "<name>External-Identifier</name>")
	require.Greater(t, first, -1)
	assert.Greater(t, second, first)

	resp = server.do(http.MethodPut, "/APP/bag/"+ark+"/", bagEntry(ark))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = server.do(http.MethodPut, "/APP/bag/ark:/67531/other/", bagEntry(ark))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "The bag name '"+ark+"' does not match the request URL.", resp.Body.String())

	resp = server.do(http.MethodDelete, "/APP/bag/"+ark+"/", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Deleted "+ark+".\n", resp.Body.String())

	resp = server.do(http.MethodGet, "/APP/bag/"+ark+"/", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "There is no bag with id '"+ark+"'.", resp.Body.String())
}

func TestBagMethodNotAllowed(t *testing.T) {
	server := newTestServer(t)

	resp := server.do(http.MethodPatch, "/APP/bag/ark:/67531/coda2/", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	assert.Equal(t, "GET, PUT, DELETE", resp.Header().Get("Allow"))

	resp = server.do(http.MethodPut, "/APP/bag/", bagEntry("ark:/67531/coda2"))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	assert.Equal(t, "GET, POST", resp.Header().Get("Allow"))
}

func TestBagBadPayload(t *testing.T) {
	server := newTestServer(t)

	resp := server.do(http.MethodPost, "/APP/bag/", "<entry><title>x</title></entry>")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "no content element located", resp.Body.String())

	resp = server.do(http.MethodPost, "/APP/bag/",
		"<entry><content><codaXML><fileCount>1</fileCount></codaXML></content></entry>")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Unable to set 'name' attribute", resp.Body.String())
}

func TestBagFeedPaging(t *testing.T) {
	server := newTestServer(t)
	resp := server.do(http.MethodPost, "/APP/bag/", bagEntry("ark:/67531/coda2"))
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = server.do(http.MethodGet, "/APP/bag/", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "<title>Bag Feed</title>")
	assert.Contains(t, resp.Body.String(), "ark:/67531/coda2")

	resp = server.do(http.MethodGet, "/APP/bag/?page=abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Page does not exist.", resp.Body.String())

	resp = server.do(http.MethodGet, "/APP/bag/?page=99", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Page does not exist.", resp.Body.String())
}

func TestPublicFeedClampsPage(t *testing.T) {
	server := newTestServer(t)
	resp := server.do(http.MethodPost, "/APP/bag/", bagEntry("ark:/67531/coda2"))
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = server.do(http.MethodGet, "/feed/?p=999", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "<subtitle>Recent Bags</subtitle>")
	assert.Contains(t, resp.Body.String(), "Bagging-Date: 2015-01-01")
}

func TestExternalIdentifierJSON(t *testing.T) {
	server := newTestServer(t)
	resp := server.do(http.MethodPost, "/APP/bag/", bagEntry("ark:/67531/coda2"))
	require.Equal(t, http.StatusCreated, resp.Code)

	// bare value gets the standard shoulder prepended
	resp = server.do(http.MethodGet, "/bag/external-identifier.json?ark=metadc000001", "")
	assert.Equal(t, http.StatusOK, resp.Code)

	var results []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "ark:/67531/coda2", results[0]["name"])
	assert.Equal(t, "1500.3", results[0]["oxum"])
	assert.Equal(t, "2015-01-01", results[0]["bagging_date"])
}

func TestNodeLifecycle(t *testing.T) {
	server := newTestServer(t)

	resp := server.do(http.MethodPost, "/APP/node/", nodeEntry("coda-001"))
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), "<name>coda-001</name>")

	resp = server.do(http.MethodGet, "/APP/node/coda-001/", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "<capacity>1000</capacity>")

	resp = server.do(http.MethodGet, "/APP/node/coda-009/", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "There is no node with name 'coda-009'.", resp.Body.String())

	resp = server.do(http.MethodDelete, "/APP/node/coda-001/", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Deleted 'coda-001'.\n", resp.Body.String())
}

func TestQueueLifecycle(t *testing.T) {
	server := newTestServer(t)
	ark := "ark:/67531/coda2"

	resp := server.do(http.MethodPost, "/APP/queue/", queueEntry(ark))
	assert.Equal(t, http.StatusCreated, resp.Code)
	// the entry location has always been the bare ark under the host root
	assert.Equal(t, "http://example.com/"+ark+"/", resp.Header().Get("Location"))
	// submitted status is ignored, new entries always start ready
	assert.Contains(t, resp.Body.String(), "<status>1</status>")
	assert.Contains(t, resp.Body.String(), "<position>1</position>")

	resp = server.do(http.MethodGet, "/APP/queue/"+ark+"/", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "<oxum>1500.3</oxum>")

	resp = server.do(http.MethodPut, "/APP/queue/ark:/67531/other/", queueEntry(ark))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t,
		"The ark "+ark+" does not match the ark in the request URL ark:/67531/other.",
		resp.Body.String())

	resp = server.do(http.MethodDelete, "/APP/queue/"+ark+"/", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Queue entry for ark "+ark+" deleted.\n", resp.Body.String())

	resp = server.do(http.MethodGet, "/APP/queue/"+ark+"/", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "There is no queue entry for ark '"+ark+"'.\n", resp.Body.String())
}

func TestQueueStats(t *testing.T) {
	server := newTestServer(t)
	resp := server.do(http.MethodPost, "/APP/queue/", queueEntry("ark:/67531/coda2"))
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = server.do(http.MethodGet, "/queue/stats.json", "")
	assert.Equal(t, http.StatusOK, resp.Code)

	var stats struct {
		Totals       int64            `json:"totals"`
		StatusCounts map[string]int64 `json:"status_counts"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Totals)
	assert.Equal(t, int64(1), stats.StatusCounts["Ready to Harvest"])
	assert.Equal(t, int64(0), stats.StatusCounts["Completed"])
}

func TestValidateLifecycle(t *testing.T) {
	server := newTestServer(t)
	identifier := "ark:/67531/coda2"

	resp := server.do(http.MethodHead, "/APP/validate/", "")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = server.do(http.MethodPost, "/APP/validate/", validateEntry(identifier))
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), "<last_verified_status>Unverified</last_verified_status>")

	resp = server.do(http.MethodGet, "/APP/validate/"+identifier+"/", "")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = server.do(http.MethodGet, "/APP/validate/ark:/67531/other/", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "There is no validate for identifier ark:/67531/other.\n", resp.Body.String())

	// delete hands back the removed record's entry
	resp = server.do(http.MethodDelete, "/APP/validate/"+identifier+"/", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "<identifier>"+identifier+"</identifier>")

	resp = server.do(http.MethodDelete, "/APP/validate/"+identifier+"/", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "Unable to Delete. There is no identifier "+identifier+".\n", resp.Body.String())
}

func TestValidateNextFeed(t *testing.T) {
	server := newTestServer(t)

	resp := server.do(http.MethodGet, "/validate/next/", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "<subtitle>The highest priority validation item</subtitle>")
	assert.NotContains(t, resp.Body.String(), "<entry>")

	created := server.do(http.MethodPost, "/APP/validate/", validateEntry("ark:/67531/coda2"))
	require.Equal(t, http.StatusCreated, created.Code)

	resp = server.do(http.MethodGet, "/validate/next/", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "ark:/67531/coda2")
}

func TestValidatePrioritizeJSON(t *testing.T) {
	server := newTestServer(t)

	resp := server.do(http.MethodGet, "/validate/prioritize.json", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "failure", body["status"])
	assert.Equal(t, "missing identifier parameter", body["response"])

	resp = server.do(http.MethodGet, "/validate/prioritize.json?identifier=ark:/67531/coda2", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "identifier was not found", body["response"])

	created := server.do(http.MethodPost, "/APP/validate/", validateEntry("ark:/67531/coda2"))
	require.Equal(t, http.StatusCreated, created.Code)

	resp = server.do(http.MethodGet, "/validate/prioritize.json?identifier=ark:/67531/coda2", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(1), body["priority"])
	assert.Equal(t, "coda.example.com/APP/validate/ark:/67531/coda2", body["atom_pub_url"])
}

func TestValidateCheckJSON(t *testing.T) {
	server := newTestServer(t)
	created := server.do(http.MethodPost, "/APP/validate/", validateEntry("ark:/67531/coda2"))
	require.Equal(t, http.StatusCreated, created.Code)

	resp := server.do(http.MethodGet, "/validate/check.json", "")
	assert.Equal(t, http.StatusOK, resp.Code)

	var counts map[string]int64
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &counts))
	assert.Equal(t, int64(1), counts[models.VerifiedUnverified])
	assert.Equal(t, int64(0), counts[models.VerifiedPassed])
	assert.Equal(t, int64(0), counts[models.VerifiedFailed])
}

func TestOAIIdentifyAndErrors(t *testing.T) {
	server := newTestServer(t)

	resp := server.do(http.MethodGet, "/oai/?verb=Identify", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/xml")
	assert.Contains(t, resp.Body.String(), "<repositoryName>Coda Repository</repositoryName>")
	assert.Contains(t, resp.Body.String(), "<protocolVersion>2.0</protocolVersion>")

	resp = server.do(http.MethodGet, "/oai/", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `<error code="badVerb">`)

	resp = server.do(http.MethodGet, "/oai/?verb=ListRecords", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `<error code="badArgument">`)

	resp = server.do(http.MethodGet, "/oai/?verb=ListSets", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `<error code="noSetHierarchy">`)
}

func TestOAIGetRecord(t *testing.T) {
	server := newTestServer(t)
	created := server.do(http.MethodPost, "/APP/bag/", bagEntry("ark:/67531/coda2"))
	require.Equal(t, http.StatusCreated, created.Code)

	resp := server.do(http.MethodGet,
		"/oai/?verb=GetRecord&metadataPrefix=oai_dc&identifier=info:ark/67531/coda2", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "<identifier>info:ark/67531/coda2</identifier>")
	assert.Contains(t, resp.Body.String(), "<dc:identifier>ark:/67531/coda2</dc:identifier>")

	resp = server.do(http.MethodGet,
		"/oai/?verb=GetRecord&metadataPrefix=coda_bag&identifier=info:ark/67531/coda2", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "<codaXML")

	resp = server.do(http.MethodGet,
		"/oai/?verb=GetRecord&metadataPrefix=oai_dc&identifier=info:ark/67531/nothere", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `<error code="idDoesNotExist">`)
}

func TestStatsEndpoints(t *testing.T) {
	server := newTestServer(t)
	created := server.do(http.MethodPost, "/APP/bag/", bagEntry("ark:/67531/coda2"))
	require.Equal(t, http.StatusCreated, created.Code)
	node := &models.Node{NodeName: "coda-001", NodeCapacity: 5000, NodeSize: 100,
		NodePath: "/data/coda-001", NodeURL: "http://example.com/coda-001/",
		Status: models.NodeActive, LastChecked: time.Now()}
	require.NoError(t, server.nodes.Create(node))

	resp := server.do(http.MethodGet, "/stats.json", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stats))
	assert.Equal(t, float64(1), stats["bags"])
	assert.Equal(t, float64(3), stats["files"])
	assert.Equal(t, float64(5000), stats["capacity"])
	assert.Equal(t, float64(1500), stats["capacity_used"])
	assert.Equal(t, "2015-01-01", stats["updated"])

	resp = server.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())

	resp = server.do(http.MethodGet, "/robots.txt", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "User-agent: *\nDisallow: /", resp.Body.String())

	resp = server.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "counters")
}

func TestRequestIDHeader(t *testing.T) {
	server := newTestServer(t)
	resp := server.do(http.MethodGet, "/health", "")
	assert.NotEmpty(t, resp.Header().Get("X-Request-ID"))
}
