package httpapi

import (
	"github.com/jensholdgaard/cricket-auction/internal/roster"
	"github.com/jensholdgaard/cricket-auction/internal/store"
)

type teamSummaryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Credits     int    `json:"credits"`
	UsedCredits int    `json:"usedCredits"`
}

type teamResponse struct {
	teamSummaryResponse
	Players []playerResponse `json:"players"`
}

type playerResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ClassName string  `json:"className"`
	BasePrice int     `json:"basePrice"`
	Sold      bool    `json:"sold"`
	Team      *string `json:"team"`
	SoldPrice int     `json:"soldPrice"`
}

// listedPlayerResponse resolves the owning team in place of its id.
type listedPlayerResponse struct {
	playerResponse
	Team *teamSummaryResponse `json:"team"`
}

type auctionResponse struct {
	ID            string  `json:"id"`
	Player        string  `json:"player"`
	CurrentBid    int     `json:"currentBid"`
	HighestBidder *string `json:"highestBidder"`
	Version       int     `json:"version"`
}

type newAuctionResponse struct {
	Player  playerResponse  `json:"player"`
	Auction auctionResponse `json:"auction"`
}

type finalizeResponse struct {
	Message string         `json:"message"`
	Team    teamResponse   `json:"team"`
	Player  playerResponse `json:"player"`
}

func toTeamSummary(t *store.Team) teamSummaryResponse {
	return teamSummaryResponse{
		ID:          t.ID,
		Name:        t.Name,
		Credits:     t.Credits,
		UsedCredits: t.UsedCredits,
	}
}

func toTeam(t *roster.TeamWithPlayers) teamResponse {
	players := make([]playerResponse, len(t.Players))
	for i := range t.Players {
		players[i] = toPlayer(&t.Players[i])
	}
	return teamResponse{teamSummaryResponse: toTeamSummary(&t.Team), Players: players}
}

func toPlayer(p *store.Player) playerResponse {
	return playerResponse{
		ID:        p.ID,
		Name:      p.Name,
		ClassName: p.ClassName,
		BasePrice: p.BasePrice,
		Sold:      p.Sold,
		Team:      p.TeamID,
		SoldPrice: p.SoldPrice,
	}
}

func toListedPlayer(p *roster.PlayerWithTeam) listedPlayerResponse {
	resp := listedPlayerResponse{playerResponse: toPlayer(&p.Player)}
	if p.Team != nil {
		summary := toTeamSummary(p.Team)
		resp.Team = &summary
	}
	return resp
}

func toAuction(a *store.Auction) auctionResponse {
	return auctionResponse{
		ID:            a.ID,
		Player:        a.PlayerID,
		CurrentBid:    a.CurrentBid,
		HighestBidder: a.HighestBidderID,
		Version:       a.Version,
	}
}
