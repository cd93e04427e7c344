package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gaplehq/gaple-server/game/engine"
	"github.com/gaplehq/gaple-server/game/service"
	"github.com/gaplehq/gaple-server/stats"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Gaple Domino Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Gaple Domino Server - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Be the first player to empty your hand by placing dominoes on either open end
of the line. A tile is playable when one of its sides matches the pip value of
an open end.

AVAILABLE TOOLS:
- create_table: Create a new table with optional variant selection
- join_table: Join a table as a named player
- start_round: Start the round (creator only)
- table_state: Get the public table state (hand sizes, ends, turn)
- my_hand: See your own hand and which tiles are playable right now
- play_tile: Place a tile from your hand on an open end
- draw_or_pass: Draw from the stock (or pass) when you cannot or will not play
- get_table: Get table metadata (variant, created time)
- list_tables: List all active tables
- list_variants: List available rule variants
- leaderboard: Show the most winning players
- game_instructions: Get comprehensive rules and strategy notes

Call my_hand before play_tile so you know which tile IDs you actually hold.
Tile IDs always put the larger pip first, e.g. "6-4" never "4-6".`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Table management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_table",
		Description: "Create a new domino table with optional variant selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"creator_id": map[string]interface{}{
					"type":        "string",
					"description": "Player ID of the table creator",
				},
				"variant": map[string]interface{}{
					"type":        "string",
					"description": "Name of the rule variant to use (optional, defaults to classic)",
				},
				"table_id": map[string]interface{}{
					"type":        "string",
					"description": "Explicit table ID (optional, generated when omitted)",
				},
			},
			Required: []string{"creator_id"},
		},
	}, c.handleCreateTable)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_table",
		Description: "Join a table as a named player before the round starts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"table_id": map[string]interface{}{
					"type":        "string",
					"description": "Table ID to join",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Your player ID",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Display name shown to other players (optional)",
				},
			},
			Required: []string{"table_id", "player_id"},
		},
	}, c.handleJoinTable)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_round",
		Description: "Start the round, shuffling and dealing hands (table creator only)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"table_id": map[string]interface{}{
					"type":        "string",
					"description": "Table ID to start",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Your player ID (must be the creator)",
				},
			},
			Required: []string{"table_id", "player_id"},
		},
	}, c.handleStartRound)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_tables",
		Description: "List all active tables",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListTables)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_table",
		Description: "Get metadata for a specific table",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"table_id": map[string]interface{}{
					"type":        "string",
					"description": "Table ID to retrieve",
				},
			},
			Required: []string{"table_id"},
		},
	}, c.handleGetTable)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "table_state",
		Description: "Get the public table state: players, hand sizes, open ends, whose turn it is",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"table_id": map[string]interface{}{
					"type":        "string",
					"description": "Table ID",
				},
			},
			Required: []string{"table_id"},
		},
	}, c.handleTableState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "my_hand",
		Description: "See your own hand and which of your tiles are playable right now",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"table_id": map[string]interface{}{
					"type":        "string",
					"description": "Table ID",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Your player ID",
				},
			},
			Required: []string{"table_id", "player_id"},
		},
	}, c.handleMyHand)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "play_tile",
		Description: "Place a tile from your hand on a matching open end. Requires intent explanation.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"table_id": map[string]interface{}{
					"type":        "string",
					"description": "Table ID",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Your player ID",
				},
				"tile_id": map[string]interface{}{
					"type":        "string",
					"description": "Tile to play, larger pip first, e.g. \"6-4\"",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Explain why you chose this tile",
				},
			},
			Required: []string{"table_id", "player_id", "tile_id"},
		},
	}, c.handlePlayTile)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "draw_or_pass",
		Description: "Draw from the stock or pass the turn, depending on the table's draw policy",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"table_id": map[string]interface{}{
					"type":        "string",
					"description": "Table ID",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Your player ID",
				},
			},
			Required: []string{"table_id", "player_id"},
		},
	}, c.handleDrawOrPass)

	// Variants and stats
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_variants",
		Description: "List available rule variants with their hand sizes and draw policies",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListVariants)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leaderboard",
		Description: "Show the players with the most wins",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum entries to return (default 10)",
				},
			},
		},
	}, c.handleLeaderboard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive rules, variant notes, and strategy tips",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server instance
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleCreateTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	creatorID, _ := args["creator_id"].(string)
	variant, _ := args["variant"].(string)
	tableID, _ := args["table_id"].(string)

	body := map[string]string{"creator_id": creatorID}
	if variant != "" {
		body["variant"] = variant
	}
	if tableID != "" {
		body["session_id"] = tableID
	}

	var info service.SessionInfo
	err := c.apiCall("POST", "/api/sessions", body, &info)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created table: %s\nVariant: %s\nCreator: %s\n\nOther players can now join with join_table, then the creator calls start_round.",
		info.ID, info.Variant, creatorID)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleJoinTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	tableID, _ := args["table_id"].(string)
	playerID, _ := args["player_id"].(string)
	name, _ := args["name"].(string)

	body := map[string]string{"player_id": playerID}
	if name != "" {
		body["name"] = name
	}

	var result service.JoinResult
	err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/join", tableID), body, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := fmt.Sprintf("Joined table %s as %s (%d player(s) seated)\n",
		result.SessionID, result.PlayerID, result.PlayerCount)
	return mcp.NewToolResultText(response), nil
}

func (c *Client) handleStartRound(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	tableID, _ := args["table_id"].(string)
	playerID, _ := args["player_id"].(string)

	body := map[string]string{"requester_id": playerID}

	var result service.StartResult
	err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/start", tableID), body, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Round %s started on table %s.\n", result.RoundID, result.SessionID)
	fmt.Fprintf(&sb, "Your hand: %s\n", formatTiles(result.Hand))
	if result.Snapshot != nil {
		sb.WriteString(formatSnapshot(result.Snapshot))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleListTables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	err := c.apiCall("GET", "/api/sessions", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Tables (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "unknown"
		players := 0
		if s.Snapshot != nil {
			status = string(s.Snapshot.Status)
			players = len(s.Snapshot.Players)
		}
		result += fmt.Sprintf("- %s (Variant: %s, Status: %s, Players: %d, Created: %s)\n",
			s.ID, s.Variant, status, players, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	tableID, _ := args["table_id"].(string)

	var info service.SessionInfo
	err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%s", tableID), nil, &info)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Table: %s\n", info.ID)
	fmt.Fprintf(&sb, "Variant: %s\n", info.Variant)
	fmt.Fprintf(&sb, "Created: %s\n", info.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Last activity: %s\n", info.LastAccessedAt.Format(time.RFC3339))
	if info.Snapshot != nil {
		sb.WriteString(formatSnapshot(info.Snapshot))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleTableState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	tableID, _ := args["table_id"].(string)

	var snap engine.TableSnapshot
	err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%s/state", tableID), nil, &snap)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snap)), nil
}

func (c *Client) handleMyHand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	tableID, _ := args["table_id"].(string)
	playerID, _ := args["player_id"].(string)

	var state service.PlayerState
	err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%s/playable?player_id=%s", tableID, playerID), nil, &state)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hand (%d tiles): %s\n", len(state.Hand), formatTiles(state.Hand))
	if state.YourTurn {
		if len(state.Playable) > 0 {
			fmt.Fprintf(&sb, "It is YOUR TURN. Playable: %s\n", formatTiles(state.Playable))
		} else {
			sb.WriteString("It is YOUR TURN but no tile is playable. Use draw_or_pass.\n")
		}
	} else {
		sb.WriteString("It is not your turn.\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handlePlayTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	tableID, _ := args["table_id"].(string)
	playerID, _ := args["player_id"].(string)
	tileID, _ := args["tile_id"].(string)
	intent, _ := args["intent"].(string)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = intent

	body := map[string]string{
		"player_id": playerID,
		"tile_id":   tileID,
	}

	var result service.PlayResult
	err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/play", tableID), body, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Played %s. Ends are now %s.\n", result.Placed.ID, formatEnds(result.Ends))
	fmt.Fprintf(&sb, "Your hand (%d): %s\n", len(result.Hand), formatTiles(result.Hand))
	if result.Ended {
		sb.WriteString(formatEnding(result.WinnerID, result.EndReason))
	} else {
		fmt.Fprintf(&sb, "Next to play: %s\n", result.NextPlayerID)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleDrawOrPass(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	tableID, _ := args["table_id"].(string)
	playerID, _ := args["player_id"].(string)

	body := map[string]string{"player_id": playerID}

	var result service.DrawResult
	err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/draw", tableID), body, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	if len(result.Drawn) > 0 {
		fmt.Fprintf(&sb, "Drew %d tile(s): %s\n", len(result.Drawn), formatTiles(result.Drawn))
	} else {
		sb.WriteString("Nothing to draw, turn passed.\n")
	}
	fmt.Fprintf(&sb, "Your hand (%d): %s\n", len(result.Hand), formatTiles(result.Hand))
	if result.Ended {
		sb.WriteString(formatEnding(result.WinnerID, result.EndReason))
	} else if result.TurnAdvanced {
		fmt.Fprintf(&sb, "Next to play: %s\n", result.NextPlayerID)
	} else {
		sb.WriteString("It is still your turn, play a drawn tile.\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleListVariants(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var variants []service.VariantInfo
	err := c.apiCall("GET", "/api/variants", nil, &variants)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Available Variants (%d):\n\n", len(variants))
	for _, v := range variants {
		fmt.Fprintf(&sb, "- %s: %s\n", v.VariantID, v.Name)
		if v.Description != "" {
			fmt.Fprintf(&sb, "  %s\n", v.Description)
		}
		fmt.Fprintf(&sb, "  Hand size: %d, Players: %d-%d, Draw policy: %s, Stalemate: %s\n",
			v.HandSize, v.MinPlayers, v.MaxPlayers, v.DrawPolicy, v.StalemateRule)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	limit := 0
	if args != nil {
		if raw, ok := args["limit"].(float64); ok {
			limit = int(raw)
		}
	}

	path := "/api/leaderboard"
	if limit > 0 {
		path = fmt.Sprintf("/api/leaderboard?limit=%d", limit)
	}

	var response struct {
		Count   int                 `json:"count"`
		Players []stats.PlayerStats `json:"players"`
	}
	err := c.apiCall("GET", path, nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Count == 0 {
		return mcp.NewToolResultText("No recorded wins yet."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Leaderboard (%d):\n\n", response.Count)
	for i, p := range response.Players {
		name := p.Name
		if name == "" {
			name = p.PlayerID
		}
		fmt.Fprintf(&sb, "%d. %s - %d win(s), %d coins\n", i+1, name, p.Wins, p.Coins)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `GAPLE DOMINO - COMPLETE RULES

THE SET:
A double-six set of 28 tiles. Each tile has two sides with 0-6 pips.
Tile IDs always put the larger pip first: "6-4", "3-3", "5-0".

TABLE LIFECYCLE:
1. create_table - one player creates a table and becomes its creator
2. join_table - other players take seats (min/max per variant, usually 2-4)
3. start_round - the creator shuffles, deals each player a hand, and play begins
   with the creator's seat; turns rotate in join order

PLAYING:
On your turn, either:
- play_tile: place a tile whose side matches an open end. The first tile of a
  round can be anything and opens the two ends. When a tile fits both ends the
  left end is tried first.
- draw_or_pass: depends on the variant's draw policy.
  * none: you simply pass
  * single: draw one tile from the stock; if the stock is empty you pass.
    After drawing, it is STILL your turn.
  * until_playable: keep drawing until a playable tile arrives or the stock
    runs dry

WINNING:
- Empty your hand and you win the round immediately.
- Stalemate: if every player passes in a row and nothing can be drawn, the
  round is blocked. Under the lowest-pips rule the player with the smallest
  pip total in hand wins; an exact tie means nobody wins.

WHAT YOU CAN SEE:
table_state shows everyone's hand SIZES but never their tiles. Use my_hand to
see your own hand and which of your tiles are playable right now.

STRATEGY TIPS:
- Count pips: there are seven tiles of each value. If six sixes are on the
  table, the last one is in someone's hand or the stock.
- Keep your hand flexible: prefer playing tiles whose other side you hold more
  of, so you are less likely to get locked out.
- Doubles are dead weight in a blocked game; shed them early.
- Near a stalemate, dump your heaviest tiles so a lowest-pips count goes your
  way.

WORKFLOW FOR EACH TURN:
1. table_state - confirm it is your turn and read the open ends
2. my_hand - see what you hold and what is playable
3. play_tile with an intent, or draw_or_pass when stuck`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatTiles(tiles []engine.Tile) string {
	if len(tiles) == 0 {
		return "(none)"
	}
	ids := make([]string, len(tiles))
	for i, t := range tiles {
		ids[i] = t.ID
	}
	return strings.Join(ids, " ")
}

func formatEnds(ends engine.TableEnds) string {
	if !ends.Open {
		return "closed (no tile played yet)"
	}
	return fmt.Sprintf("[%d ... %d]", ends.Left, ends.Right)
}

func formatEnding(winnerID, reason string) string {
	switch {
	case winnerID != "":
		return fmt.Sprintf("ROUND OVER: %s wins (%s)\n", winnerID, reason)
	default:
		return fmt.Sprintf("ROUND OVER: no winner (%s)\n", reason)
	}
}

func formatSnapshot(snap *engine.TableSnapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Table %s (%s) - %s\n", snap.ID, snap.Variant, snap.Status)
	fmt.Fprintf(&sb, "Ends: %s | Stock: %d | Played: %d\n",
		formatEnds(snap.Ends), snap.StockSize, snap.PlayedCount)
	for _, p := range snap.Players {
		marker := "  "
		if p.ID == snap.CurrentPlayerID {
			marker = "> "
		}
		fmt.Fprintf(&sb, "%s%s (%s): %d tile(s)\n", marker, p.Name, p.ID, p.HandSize)
	}
	if snap.WinnerID != "" || snap.EndReason != "" {
		sb.WriteString(formatEnding(snap.WinnerID, snap.EndReason))
	}
	return sb.String()
}
