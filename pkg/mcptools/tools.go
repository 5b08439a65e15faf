// Package mcptools exposes team recommendation and icon detection as MCP tools.
package mcptools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cloudmeowmog/mezastar/pkg/battle"
	"github.com/cloudmeowmog/mezastar/pkg/detector"
	"github.com/cloudmeowmog/mezastar/pkg/inventory"
	"github.com/cloudmeowmog/mezastar/pkg/team"
	"github.com/cloudmeowmog/mezastar/pkg/templates"
	"github.com/cloudmeowmog/mezastar/pkg/types"
)

// Tools carries the stores and engines the handlers work on.
type Tools struct {
	Cards    *inventory.Store
	Library  *templates.Library
	Detector *detector.Detector
	Scorer   *battle.Scorer
	Team     team.Options
}

// Register adds every tool to the MCP server.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(recommendTeamTool(), t.handleRecommendTeam)
	s.AddTool(scanBoardTool(), t.handleScanBoard)
	s.AddTool(listCardsTool(), t.handleListCards)
	s.AddTool(listTemplatesTool(), t.handleListTemplates)
}

// --- Tool definitions ---

var slotNames = [battle.Slots]string{"left", "center", "right"}

func recommendTeamTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Recommend a team of cards from the inventory against three opponents. " +
			"Give each opponent's types as 'Type' or 'Type1/Type2'; leave a slot empty if unknown."),
	}
	for _, name := range slotNames {
		opts = append(opts, mcp.WithString(name, mcp.Description("Types of the "+name+" opponent, e.g. 'Water/Flying'")))
	}
	opts = append(opts, mcp.WithBoolean("use_risk", mcp.Description("Divide scores by each card's worst defensive matchup")))
	return mcp.NewTool("recommend_team", opts...)
}

func scanBoardTool() mcp.Tool {
	return mcp.NewTool("scan_board",
		mcp.WithDescription("Detect advantage icons on a battle screenshot stored on disk and recommend a team from them."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to a PNG, JPEG or WebP screenshot")),
	)
}

func listCardsTool() mcp.Tool {
	return mcp.NewTool("list_cards",
		mcp.WithDescription("List the owned cards in the inventory. Read-only."),
	)
}

func listTemplatesTool() mcp.Tool {
	return mcp.NewTool("list_templates",
		mcp.WithDescription("List how many icon templates exist per type label. Read-only."),
	)
}

// --- Tool handlers ---

func respondJSON(v any) (*mcp.CallToolResult, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return mcp.NewToolResultErrorf("marshal error: %v", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// parsePair reads "Water" or "Water/Flying".
func parsePair(s string) ([2]types.Type, error) {
	pair := [2]types.Type{types.None, types.None}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == ',' })
	if len(parts) > 2 {
		return pair, fmt.Errorf("at most two types per opponent, got %q", s)
	}
	for i, p := range parts {
		t, ok := types.Parse(p)
		if !ok {
			return pair, fmt.Errorf("unknown type %q", strings.TrimSpace(p))
		}
		pair[i] = t
	}
	return pair, nil
}

type recommendation struct {
	Mode      battle.Mode      `json:"mode"`
	Team      team.Team        `json:"team"`
	Detection *detector.Result `json:"detection,omitempty"`
}

func (t *Tools) recommend(cfg battle.Configuration, sc battle.Scorer) recommendation {
	cands := sc.ScoreInventory(t.Cards.Cards(), cfg)
	return recommendation{Mode: cfg.Mode(), Team: team.Select(cands, t.Team)}
}

func (t *Tools) handleRecommendTeam(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var pairs [battle.Slots][2]types.Type
	for i, name := range slotNames {
		p, err := parsePair(request.GetString(name, ""))
		if err != nil {
			return mcp.NewToolResultErrorf("%s: %v", name, err), nil
		}
		pairs[i] = p
	}
	sc := *t.Scorer
	sc.UseRisk = request.GetBool("use_risk", sc.UseRisk)

	return respondJSON(t.recommend(battle.NewManual(pairs), sc))
}

func (t *Tools) handleScanBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultErrorf("Failed to read screenshot: %v", err), nil
	}

	res := t.Detector.DetectBytes(data, nil, t.Library)
	rec := t.recommend(battle.FromDetection(res.Zones), *t.Scorer)
	rec.Detection = &res
	return respondJSON(rec)
}

func (t *Tools) handleListCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respondJSON(t.Cards.Cards())
}

func (t *Tools) handleListTemplates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	counts := make(map[types.Type]int)
	for label, ts := range t.Library.List() {
		counts[label] = len(ts)
	}
	return respondJSON(counts)
}
