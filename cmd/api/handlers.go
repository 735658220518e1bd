package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/app/business"
	"github.com/WyattLin001/invest-tournament-engine/src/app/tournaments"
	"github.com/WyattLin001/invest-tournament-engine/src/app/trading"
	"github.com/WyattLin001/invest-tournament-engine/src/app/workflow"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/fees"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/ranking"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/tournament"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/wallet"
)

// statusForError maps engine sentinel errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, workflow.ErrInvalidParameters),
		errors.Is(err, wallet.ErrInvalidTrade):
		return http.StatusBadRequest
	case errors.Is(err, tournament.ErrTournamentNotFound),
		errors.Is(err, wallet.ErrWalletNotFound),
		errors.Is(err, ranking.ErrNotSettled):
		return http.StatusNotFound
	case errors.Is(err, business.ErrAlreadyJoined),
		errors.Is(err, tournament.ErrTournamentFull),
		errors.Is(err, tournament.ErrTournamentNotActive),
		errors.Is(err, tournament.ErrTournamentNotEnded),
		errors.Is(err, tournament.ErrInvalidTransition),
		errors.Is(err, ranking.ErrAlreadySettled):
		return http.StatusConflict
	case errors.Is(err, trading.ErrRiskLimitExceeded),
		errors.Is(err, wallet.ErrInsufficientFunds),
		errors.Is(err, wallet.ErrInsufficientShares):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type CreateTournamentRequest struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	Type               string `json:"type"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	InitialBalance     string `json:"initial_balance"`
	MaxParticipants    int    `json:"max_participants"`
	EntryFee           string `json:"entry_fee"`
	PrizePool          string `json:"prize_pool"`
	MinHoldingRate     string `json:"min_holding_rate"`
	MaxSingleStockRate string `json:"max_single_stock_rate"`
	Rules              string `json:"rules"`
}

type TournamentResponse struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Type                string `json:"type"`
	Status              string `json:"status"`
	StartTime           string `json:"start_time"`
	EndTime             string `json:"end_time"`
	InitialBalance      string `json:"initial_balance"`
	PrizePool           string `json:"prize_pool"`
	MaxParticipants     int    `json:"max_participants"`
	CurrentParticipants int    `json:"current_participants"`
}

func tournamentResponse(t *tournament.Tournament) TournamentResponse {
	return TournamentResponse{
		ID:                  string(t.ID),
		Name:                t.Name,
		Type:                string(t.Type),
		Status:              string(t.Status),
		StartTime:           t.StartTime.Format(time.RFC3339),
		EndTime:             t.EndTime.Format(time.RFC3339),
		InitialBalance:      t.InitialBalance.String(),
		PrizePool:           t.PrizePool.String(),
		MaxParticipants:     t.MaxParticipants,
		CurrentParticipants: t.CurrentParticipants,
	}
}

func parseDecimal(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return value
}

func (s *Server) handleCreateTournament(w http.ResponseWriter, r *http.Request) {
	var req CreateTournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, workflow.ErrInvalidParameters)
		return
	}
	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, workflow.ErrInvalidParameters)
		return
	}

	tour, err := s.cfg.Engine.CreateTournament(r.Context(), tournaments.CreateTournamentCommand{
		Name:               req.Name,
		Description:        req.Description,
		Type:               tournament.Type(req.Type),
		StartTime:          startTime,
		EndTime:            endTime,
		InitialBalance:     parseDecimal(req.InitialBalance),
		MaxParticipants:    req.MaxParticipants,
		EntryFee:           parseDecimal(req.EntryFee),
		PrizePool:          parseDecimal(req.PrizePool),
		MinHoldingRate:     parseDecimal(req.MinHoldingRate),
		MaxSingleStockRate: parseDecimal(req.MaxSingleStockRate),
		Rules:              req.Rules,
	})
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tournamentResponse(tour))
}

func (s *Server) handleListTournaments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := s.cfg.Engine.Tournaments.ListTournaments(r.Context(), tournaments.ListTournamentsQuery{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}

	out := make([]TournamentResponse, 0, len(list))
	for _, t := range list {
		out = append(out, tournamentResponse(t))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTournament(w http.ResponseWriter, r *http.Request) {
	id := shared.TournamentID(mux.Vars(r)["id"])
	tour, err := s.cfg.Engine.Tournaments.GetTournament(r.Context(), id)
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, tournamentResponse(tour))
}

type TransitionRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	id := shared.TournamentID(mux.Vars(r)["id"])
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	tour, err := s.cfg.Engine.Tournaments.ApplyTransition(r.Context(), id, tournaments.Transition(req.Action))
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, tournamentResponse(tour))
}

type JoinTournamentRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleJoinTournament(w http.ResponseWriter, r *http.Request) {
	id := shared.TournamentID(mux.Vars(r)["id"])
	var req JoinTournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.cfg.Engine.JoinTournament(r.Context(), id, shared.UserID(req.UserID)); err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type ExecuteTradeRequest struct {
	UserID   string `json:"user_id"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Quantity int64  `json:"quantity"`
	Price    string `json:"price"`
}

type TradeResponse struct {
	TradeID     string `json:"trade_id"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	Quantity    int64  `json:"quantity"`
	Price       string `json:"price"`
	BrokerFee   string `json:"broker_fee"`
	Tax         string `json:"transaction_tax"`
	NetAmount   string `json:"net_amount"`
	RealizedPnL string `json:"realized_pnl"`
	Status      string `json:"status"`
	ExecutedAt  string `json:"executed_at"`
}

func (s *Server) handleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	id := shared.TournamentID(mux.Vars(r)["id"])
	var req ExecuteTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	trade, err := s.cfg.Engine.ExecuteTournamentTrade(r.Context(), trading.ExecuteTradeCommand{
		TournamentID: id,
		UserID:       shared.UserID(req.UserID),
		Symbol:       shared.Symbol(req.Symbol),
		Side:         fees.Side(req.Side),
		Quantity:     req.Quantity,
		Price:        parseDecimal(req.Price),
	})
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}
	s.writeJSON(w, http.StatusCreated, TradeResponse{
		TradeID:     trade.ID,
		Symbol:      string(trade.Symbol),
		Side:        string(trade.Side),
		Quantity:    trade.Quantity,
		Price:       trade.Price.String(),
		BrokerFee:   trade.Fees.BrokerFee.String(),
		Tax:         trade.Fees.TransactionTax.String(),
		NetAmount:   trade.NetAmount.String(),
		RealizedPnL: trade.RealizedPnL.String(),
		Status:      string(trade.Status),
		ExecutedAt:  trade.ExecutedAt.Format(time.RFC3339),
	})
}

type RankingResponse struct {
	Rank               int    `json:"rank"`
	UserID             string `json:"user_id"`
	TotalAssets        string `json:"total_assets"`
	TotalReturnPercent string `json:"total_return_percent"`
	TotalTrades        int    `json:"total_trades"`
	WinRate            string `json:"win_rate"`
}

func (s *Server) handleGetRankings(w http.ResponseWriter, r *http.Request) {
	id := shared.TournamentID(mux.Vars(r)["id"])
	rows, err := s.cfg.Engine.UpdateLiveRankings(r.Context(), id)
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}

	out := make([]RankingResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, RankingResponse{
			Rank:               row.Rank,
			UserID:             string(row.UserID),
			TotalAssets:        row.TotalAssets.String(),
			TotalReturnPercent: row.TotalReturnPercent.String(),
			TotalTrades:        row.TotalTrades,
			WinRate:            row.WinRate.String(),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type SettlementResponse struct {
	RankingResponse
	RewardAmount string `json:"reward_amount,omitempty"`
	RewardType   string `json:"reward_type,omitempty"`
	SettledAt    string `json:"settled_at"`
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	id := shared.TournamentID(mux.Vars(r)["id"])
	results, err := s.cfg.Engine.SettleTournament(r.Context(), id)
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}

	out := make([]SettlementResponse, 0, len(results))
	for _, result := range results {
		row := SettlementResponse{
			RankingResponse: RankingResponse{
				Rank:               result.Rank,
				UserID:             string(result.UserID),
				TotalAssets:        result.TotalAssets.String(),
				TotalReturnPercent: result.TotalReturnPercent.String(),
				TotalTrades:        result.TotalTrades,
				WinRate:            result.WinRate.String(),
			},
			SettledAt: result.SettledAt.Format(time.RFC3339),
		}
		if result.Reward != nil {
			row.RewardAmount = result.Reward.Amount.String()
			row.RewardType = result.Reward.Type
		}
		out = append(out, row)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	id := shared.TournamentID(mux.Vars(r)["id"])
	if err := s.cfg.Engine.RefreshPrices(r.Context(), id); err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type PositionResponse struct {
	Symbol        string `json:"symbol"`
	Quantity      int64  `json:"quantity"`
	AvgPrice      string `json:"avg_price"`
	LastPrice     string `json:"last_price"`
	MarketValue   string `json:"market_value"`
	UnrealizedPnL string `json:"unrealized_pnl"`
}

type WalletResponse struct {
	TournamentID string             `json:"tournament_id"`
	UserID       string             `json:"user_id"`
	Cash         string             `json:"cash"`
	MarketValue  string             `json:"market_value"`
	TotalValue   string             `json:"total_value"`
	TradeCount   int                `json:"trade_count"`
	Positions    []PositionResponse `json:"positions"`
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := shared.TournamentID(vars["id"])
	userID := shared.UserID(vars["user"])

	wlt, err := s.cfg.Engine.Wallets.GetWallet(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}

	positions := make([]PositionResponse, 0, len(wlt.Positions))
	for _, pos := range wlt.Positions {
		positions = append(positions, PositionResponse{
			Symbol:        string(pos.Symbol),
			Quantity:      pos.Quantity,
			AvgPrice:      pos.AvgPrice.String(),
			LastPrice:     pos.LastPrice.String(),
			MarketValue:   pos.MarketValue().String(),
			UnrealizedPnL: pos.UnrealizedPnL().String(),
		})
	}
	s.writeJSON(w, http.StatusOK, WalletResponse{
		TournamentID: string(wlt.TournamentID),
		UserID:       string(wlt.UserID),
		Cash:         wlt.Cash.String(),
		MarketValue:  wlt.MarketValue().String(),
		TotalValue:   wlt.TotalValue().String(),
		TradeCount:   wlt.TradeCount(),
		Positions:    positions,
	})
}
