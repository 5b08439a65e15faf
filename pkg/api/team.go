package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cloudmeowmog/mezastar/pkg/battle"
	"github.com/cloudmeowmog/mezastar/pkg/detector"
	"github.com/cloudmeowmog/mezastar/pkg/team"
	"github.com/cloudmeowmog/mezastar/pkg/types"
)

type SlotRequest struct {
	Type1    string   `json:"type1"`
	Type2    string   `json:"type2"`
	Detected []string `json:"detected"`
}

type TeamRequest struct {
	Slots       [battle.Slots]SlotRequest `json:"slots"`
	UseRisk     *bool                     `json:"useRisk"`
	Size        int                       `json:"size"`
	RelaxedFill *bool                     `json:"relaxedFill"`
}

type TeamResponse struct {
	Mode          battle.Mode          `json:"mode"`
	Configuration battle.Configuration `json:"configuration"`
	Team          team.Team            `json:"team"`
	Candidates    []battle.Candidate   `json:"candidates"`
	Detection     *detector.Result     `json:"detection,omitempty"`
}

func parseType(field, s string) (types.Type, error) {
	t, ok := types.Parse(s)
	if !ok {
		return types.None, fmt.Errorf("%s: unknown type %q", field, s)
	}
	return t, nil
}

func (r TeamRequest) configuration() (battle.Configuration, error) {
	var cfg battle.Configuration
	for i, sr := range r.Slots {
		var err error
		if cfg[i].ManualType1, err = parseType(fmt.Sprintf("slots[%d].type1", i), sr.Type1); err != nil {
			return cfg, err
		}
		if cfg[i].ManualType2, err = parseType(fmt.Sprintf("slots[%d].type2", i), sr.Type2); err != nil {
			return cfg, err
		}
		for _, d := range sr.Detected {
			t, err := parseType(fmt.Sprintf("slots[%d].detected", i), d)
			if err != nil {
				return cfg, err
			}
			if !t.IsNone() {
				cfg[i].Detected = append(cfg[i].Detected, t)
			}
		}
	}
	return cfg, nil
}

// recommend scores the inventory against cfg and selects a team.
func (s *Server) recommend(cfg battle.Configuration, useRisk *bool, size int, relaxed *bool) TeamResponse {
	sc := *s.scorer
	if useRisk != nil {
		sc.UseRisk = *useRisk
	}
	opts := s.teamOptions()
	if size > 0 {
		opts.Size = size
	}
	if relaxed != nil {
		opts.RelaxedFill = *relaxed
	}

	cands := sc.ScoreInventory(s.cards.Cards(), cfg)
	if cands == nil {
		cands = []battle.Candidate{}
	}
	return TeamResponse{
		Mode:          cfg.Mode(),
		Configuration: cfg,
		Team:          team.Select(cands, opts),
		Candidates:    cands,
	}
}

// RecommendTeam handles POST /api/team.
func (s *Server) RecommendTeam(c *gin.Context) {
	var req TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg, err := req.configuration()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.recommend(cfg, req.UseRisk, req.Size, req.RelaxedFill))
}

// ScanTeam handles POST /api/team/scan: detect icons in the uploaded board,
// then recommend a team. Manual types in form fields type1_<i> / type2_<i>
// switch the battle to manual mode.
func (s *Server) ScanTeam(c *gin.Context) {
	var manual [battle.Slots][2]types.Type
	for i := range manual {
		for j, key := range []string{"type1_%d", "type2_%d"} {
			field := fmt.Sprintf(key, i)
			t, err := parseType(field, c.PostForm(field))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			manual[i][j] = t
		}
	}

	res, _, ok := s.runDetection(c)
	if !ok {
		return
	}
	cfg := battle.FromDetection(res.Zones)
	for i, m := range manual {
		cfg = cfg.WithManual(i, m[0], m[1])
	}

	resp := s.recommend(cfg, nil, 0, nil)
	resp.Detection = &res
	c.JSON(http.StatusOK, resp)
}
