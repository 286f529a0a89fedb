// Package api provides the REST API server for tickseq
package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/tickseq/tickseq/pkg/converter"
	"github.com/tickseq/tickseq/pkg/render"
	"github.com/tickseq/tickseq/pkg/sequence"
)

// maxUpload bounds the size of an uploaded file
const maxUpload = 32 << 20

// @title tickseq API
// @version 1.0
// @description API for converting between MIDI files and quantized tick sequences
// @host localhost:8080
// @BasePath /api/v1

// Server serves conversions backed by one Converter
type Server struct {
	conv   *converter.Converter
	logger *charmlog.Logger
}

// NewServer creates a Server. The converter's mapping table is shared read-only by all requests.
func NewServer(conv *converter.Converter, logger *charmlog.Logger) *Server {
	if conv == nil {
		conv = converter.New(nil, nil, nil)
	}
	if logger == nil {
		logger = charmlog.Default()
	}
	return &Server{conv: conv, logger: logger}
}

// StartServer starts the API server on the specified port
func StartServer(port int, conv *converter.Converter, logger *charmlog.Logger) error {
	s := NewServer(conv, logger)
	s.logger.Info("starting API server", "port", port, "swagger", fmt.Sprintf("http://localhost:%d/swagger/index.html", port))
	return s.Router().Run(fmt.Sprintf(":%d", port))
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/import", s.handleImport)
		v1.POST("/export", s.handleExport)
		v1.POST("/render", s.handleRender)
		v1.GET("/mappings", s.listMappings)
		v1.GET("/formats", listFormats)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-Anomalies")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "tickseq",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns a list of supported file formats
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{string(converter.FormatMIDI), string(converter.FormatTicks)},
		"conversions": converter.GetSupportedConversions(),
	})
}

// listMappings godoc
// @Summary List controller mappings
// @Description Returns the mapping table used to normalize controller values
// @Tags info
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/mappings [get]
func (s *Server) listMappings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"mappings": s.conv.Table().Mappings(),
	})
}

// ImportResponse is the body returned by the import endpoint
type ImportResponse struct {
	Sequence    *sequence.Sequence     `json:"sequence"`
	Stats       sequence.Stats         `json:"stats"`
	Diagnostics *converter.Diagnostics `json:"diagnostics"`
}

// handleImport godoc
// @Summary Convert MIDI to a tick sequence
// @Description Upload a MIDI file and receive its tick sequence with conversion diagnostics
// @Tags convert
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file to convert"
// @Param download query bool false "Return the sequence as a .ticks.json attachment"
// @Success 200 {object} ImportResponse
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/import [post]
func (s *Server) handleImport(c *gin.Context) {
	data, name, ok := readUpload(c)
	if !ok {
		return
	}

	seq, diag, err := s.conv.Importer().ImportMIDI(data)
	if err != nil {
		s.logger.Warn("import failed", "file", name, "err", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("imported", "file", name, "ticks", seq.Len(), "anomalies", diag.Summary())

	if download, _ := strconv.ParseBool(c.Query("download")); download {
		var buf bytes.Buffer
		if err := sequence.Write(&buf, seq); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("X-Anomalies", strconv.Itoa(diag.Total()))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", converter.OutputPath(name, converter.FormatTicks)))
		c.Data(http.StatusOK, "application/json", buf.Bytes())
		return
	}

	c.JSON(http.StatusOK, ImportResponse{Sequence: seq, Stats: seq.Stats(), Diagnostics: diag})
}

// handleExport godoc
// @Summary Convert a tick sequence to MIDI
// @Description Upload a .ticks.json file and receive a MIDI file; the anomaly count is returned in X-Anomalies
// @Tags convert
// @Accept multipart/form-data
// @Produce audio/midi
// @Param file formData file true "Tick sequence to convert"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/export [post]
func (s *Server) handleExport(c *gin.Context) {
	data, name, ok := readUpload(c)
	if !ok {
		return
	}

	result, diag, err := s.conv.TicksToMIDI(data)
	if err != nil {
		s.logger.Warn("export failed", "file", name, "err", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("exported", "file", name, "bytes", len(result), "anomalies", diag.Summary())

	c.Header("X-Anomalies", strconv.Itoa(diag.Total()))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", converter.OutputPath(name, converter.FormatMIDI)))
	c.Data(http.StatusOK, "audio/midi", result)
}

// handleRender godoc
// @Summary Render a piano roll
// @Description Upload a MIDI file or tick sequence and receive a PNG piano roll of its tick sequence
// @Tags render
// @Accept multipart/form-data
// @Produce image/png
// @Param file formData file true "MIDI file or tick sequence"
// @Param width query int false "Image width (default 1280, max 8192)"
// @Param height query int false "Image height (default 720, max 8192)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/render [post]
func (s *Server) handleRender(c *gin.Context) {
	data, name, ok := readUpload(c)
	if !ok {
		return
	}

	var (
		seq *sequence.Sequence
		err error
	)
	switch converter.DetectFormatFromContent(data) {
	case converter.FormatMIDI:
		seq, _, err = s.conv.Importer().ImportMIDI(data)
	case converter.FormatTicks:
		seq, err = sequence.Read(bytes.NewReader(data))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unrecognized file format"})
		return
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	opts := render.DefaultOptions
	for _, dim := range []struct {
		name string
		dst  *int
	}{{"width", &opts.Width}, {"height", &opts.Height}} {
		raw := c.Query(dim.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > render.MaxSide {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be between 1 and %d", dim.name, render.MaxSide)})
			return
		}
		*dim.dst = v
	}

	var buf bytes.Buffer
	if err := render.WritePNG(&buf, seq, opts); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	base := strings.TrimSuffix(converter.OutputPath(name, converter.FormatMIDI), ".mid")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.png", base))
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func readUpload(c *gin.Context) ([]byte, string, bool) {
	// Get uploaded file
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	// Read file content
	data, err := io.ReadAll(io.LimitReader(file, maxUpload+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return nil, "", false
	}
	if len(data) > maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return nil, "", false
	}
	return data, header.Filename, true
}
