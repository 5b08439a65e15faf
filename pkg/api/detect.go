package api

import (
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cloudmeowmog/mezastar/pkg/detector"
	"github.com/cloudmeowmog/mezastar/pkg/utils"
)

var errTooLarge = errors.New("upload too large")

// readUpload returns the bytes of the multipart file in field.
func (s *Server) readUpload(c *gin.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing %q file: %w", field, err)
	}
	if fh.Size > s.maxUpload() {
		return nil, errTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, s.maxUpload()))
}

func uploadError(c *gin.Context, err error) {
	if errors.Is(err, errTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// parseROI reads the optional x, y, w, h form fields. All four or none.
func parseROI(c *gin.Context) (*image.Rectangle, error) {
	keys := []string{"x", "y", "w", "h"}
	vals := make([]int, len(keys))
	given := 0
	for i, k := range keys {
		raw := c.PostForm(k)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("crop field %s must be an integer", k)
		}
		vals[i] = n
		given++
	}
	switch {
	case given == 0:
		return nil, nil
	case given != len(keys):
		return nil, errors.New("crop needs all of x, y, w, h")
	case vals[2] <= 0 || vals[3] <= 0:
		return nil, errors.New("crop width and height must be positive")
	}
	r := image.Rect(vals[0], vals[1], vals[0]+vals[2], vals[1]+vals[3])
	return &r, nil
}

// detectorFor honours ?wide=true for photos taken at an unknown distance.
func (s *Server) detectorFor(c *gin.Context) *detector.Detector {
	if wide, _ := strconv.ParseBool(c.Query("wide")); wide {
		return detector.New(s.detector.Options().Wide())
	}
	return s.detector
}

// runDetection decodes the upload and detects icons. The decoded image is
// nil when decoding failed.
func (s *Server) runDetection(c *gin.Context) (detector.Result, image.Image, bool) {
	data, err := s.readUpload(c, "image")
	if err != nil {
		uploadError(c, err)
		return detector.Result{}, nil, false
	}
	roi, err := parseROI(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return detector.Result{}, nil, false
	}

	det := s.detectorFor(c)
	img, err := utils.DecodeImage(data)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("Uploaded image could not be decoded")
		return detector.EmptyResult(detector.WarnDecode), nil, true
	}
	if roi != nil {
		return det.DetectRegion(img, *roi, s.library), img, true
	}
	return det.Detect(img, s.library), img, true
}

// Detect handles POST /api/detect.
func (s *Server) Detect(c *gin.Context) {
	res, _, ok := s.runDetection(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res)
}

// DetectPreview handles POST /api/detect/preview and returns the annotated PNG.
func (s *Server) DetectPreview(c *gin.Context) {
	res, img, ok := s.runDetection(c)
	if !ok {
		return
	}
	if img == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": detector.WarnDecode})
		return
	}
	buf, err := utils.EncodeImageToBuffer(detector.Annotate(img, res))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode image"})
		return
	}
	c.Header("X-Detected-Zones", fmt.Sprint(res.Zones))
	c.Data(http.StatusOK, "image/png", buf)
}
