package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *API) listPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := a.roster.ListPlayers(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp := make([]listedPlayerResponse, len(players))
	for i := range players {
		resp[i] = toListedPlayer(&players[i])
	}
	a.respondJSON(w, r, http.StatusOK, resp)
}

func (a *API) deletePlayer(w http.ResponseWriter, r *http.Request) {
	if err := a.auctions.DeletePlayer(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondJSON(w, r, http.StatusOK, messageResponse{Message: "Unsold player deleted"})
}

func (a *API) createTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if msg, ok := a.decode(r, &req); !ok {
		a.respondError(w, r, http.StatusBadRequest, msg)
		return
	}
	team, err := a.roster.CreateTeam(r.Context(), req.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondJSON(w, r, http.StatusOK, teamResponse{teamSummaryResponse: toTeamSummary(team), Players: []playerResponse{}})
}

func (a *API) getTeam(w http.ResponseWriter, r *http.Request) {
	team, err := a.roster.GetTeam(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondJSON(w, r, http.StatusOK, toTeam(team))
}

func (a *API) getTeamByName(w http.ResponseWriter, r *http.Request) {
	team, err := a.roster.GetTeamByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondJSON(w, r, http.StatusOK, toTeam(team))
}

func (a *API) listTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := a.roster.ListTeams(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp := make([]teamResponse, len(teams))
	for i := range teams {
		resp[i] = toTeam(&teams[i])
	}
	a.respondJSON(w, r, http.StatusOK, resp)
}

func (a *API) newAuction(w http.ResponseWriter, r *http.Request) {
	var req newAuctionRequest
	if msg, ok := a.decode(r, &req); !ok {
		a.respondError(w, r, http.StatusBadRequest, msg)
		return
	}
	player, auc, err := a.auctions.CreatePlayerAndStartAuction(r.Context(), req.Name, req.ClassName, *req.BasePrice)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondJSON(w, r, http.StatusOK, newAuctionResponse{Player: toPlayer(player), Auction: toAuction(auc)})
}

func (a *API) startAuction(w http.ResponseWriter, r *http.Request) {
	var req startAuctionRequest
	if msg, ok := a.decode(r, &req); !ok {
		a.respondError(w, r, http.StatusBadRequest, msg)
		return
	}
	auc, err := a.auctions.StartAuction(r.Context(), chi.URLParam(r, "playerId"), *req.BasePrice)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondJSON(w, r, http.StatusOK, toAuction(auc))
}

func (a *API) placeBid(w http.ResponseWriter, r *http.Request) {
	var req bidRequest
	if msg, ok := a.decode(r, &req); !ok {
		a.respondError(w, r, http.StatusBadRequest, msg)
		return
	}
	auc, err := a.auctions.PlaceBid(r.Context(), chi.URLParam(r, "auctionId"), req.TeamID, *req.BidAmount)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondJSON(w, r, http.StatusOK, toAuction(auc))
}

func (a *API) finalizeAuction(w http.ResponseWriter, r *http.Request) {
	team, player, err := a.auctions.FinalizeAuction(r.Context(), chi.URLParam(r, "auctionId"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	owner, err := a.roster.GetTeam(r.Context(), team.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondJSON(w, r, http.StatusOK, finalizeResponse{
		Message: "Auction finalized",
		Team:    toTeam(owner),
		Player:  toPlayer(player),
	})
}

func (a *API) saveAndReset(w http.ResponseWriter, r *http.Request) {
	if _, err := a.auctions.SaveAndReset(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondJSON(w, r, http.StatusOK, messageResponse{Message: "All sold players reset. Unsold remain unchanged."})
}

func (a *API) checkpoint(w http.ResponseWriter, r *http.Request) {
	if _, err := a.auctions.Checkpoint(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondJSON(w, r, http.StatusOK, messageResponse{Message: "Auctions closed - standings saved."})
}

func (a *API) dropAuction(w http.ResponseWriter, r *http.Request) {
	if err := a.auctions.DropAuction(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondJSON(w, r, http.StatusOK, messageResponse{Message: "Player dropped and marked unsold."})
}

func (a *API) getAuction(w http.ResponseWriter, r *http.Request) {
	auc, err := a.auctions.GetAuction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondJSON(w, r, http.StatusOK, toAuction(auc))
}

func (a *API) listAuctions(w http.ResponseWriter, r *http.Request) {
	auctions, err := a.auctions.ListAuctions(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp := make([]auctionResponse, len(auctions))
	for i := range auctions {
		resp[i] = toAuction(&auctions[i])
	}
	a.respondJSON(w, r, http.StatusOK, resp)
}
