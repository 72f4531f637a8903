package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"paca-stakes/internal/network"
	"paca-stakes/internal/service"
	"paca-stakes/internal/simulator"
	"paca-stakes/internal/sorting"
	"paca-stakes/internal/stake"
)

type errorResponse struct {
	Error string `json:"error"`
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func (s *Server) fail(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidAddress) {
		badRequest(c, err)
		return
	}
	s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.AbortWithStatusJSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
}

func (s *Server) getNetworks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"networks": s.networks.All()})
}

func (s *Server) getWallet(c *gin.Context) {
	snap, err := s.svc.Lookup(c.Request.Context(), c.Param("address"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.walletView(snap))
}

func (s *Server) getStakes(c *gin.Context) {
	chain, err := s.chainParam(c.Query("chain"))
	if err != nil {
		badRequest(c, err)
		return
	}
	cfg, err := sortParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	page, size, err := pageParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	showCompleted, _ := strconv.ParseBool(c.DefaultQuery("completed", "true"))

	snap, err := s.svc.Lookup(c.Request.Context(), c.Param("address"))
	if err != nil {
		s.fail(c, err)
		return
	}

	stakes := stake.FilterCompleted(snap.Stakes[chain.ID], !showCompleted)
	stakes = sorting.SortStakes(stakes, cfg, chain.Decimals)
	p := sorting.Paginate(len(stakes), page, size)

	now := s.now()
	rows := make([]stakeRow, 0, p.End-p.Start)
	for _, st := range sorting.Slice(stakes, p) {
		rows = append(rows, newStakeRow(st, now))
	}
	c.JSON(http.StatusOK, stakesResponse{
		Address: snap.Address,
		Chain:   chain.ID,
		Token:   chain.Token,
		Totals:  newTotalsView(snap.Totals[chain.ID]),
		Page:    p,
		Stakes:  rows,
	})
}

func (s *Server) getWithdrawals(c *gin.Context) {
	chain, err := s.chainParam(c.Query("chain"))
	if err != nil {
		badRequest(c, err)
		return
	}
	cfg, err := sortParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	showCompleted, _ := strconv.ParseBool(c.DefaultQuery("completed", "false"))

	w, err := s.svc.Withdrawals(c.Request.Context(), chain.ID, c.Param("address"), showCompleted)
	if err != nil {
		s.fail(c, err)
		return
	}
	w.Items = sorting.SortWithdrawals(w.Items, cfg, chain.Decimals)

	now := s.now()
	rows := make([]withdrawalRow, 0, len(w.Items))
	for _, item := range w.Items {
		rows = append(rows, newWithdrawalRow(item, chain.Decimals, now))
	}
	c.JSON(http.StatusOK, gin.H{"address": w.Address, "chain": chain.ID, "token": chain.Token, "withdrawals": rows})
}

func (s *Server) getMarket(c *gin.Context) {
	chain, err := s.chainParam(c.Param("chain"))
	if err != nil {
		badRequest(c, err)
		return
	}
	cfg, err := sortParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	m, err := s.svc.Market(c.Request.Context(), chain.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	now := s.now()
	listings := sorting.SortListings(m.Listings, cfg, chain.Decimals, now)
	rows := make([]listingRow, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, newListingRow(l, chain.Decimals, now))
	}
	c.JSON(http.StatusOK, gin.H{"chain": chain.ID, "token": chain.Token, "listings": rows})
}

func (s *Server) getRates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rates": s.svc.PoolRates(c.Request.Context())})
}

func (s *Server) getCalc(c *gin.Context) {
	amount, err := floatQuery(c, "amount", 0)
	if err != nil {
		badRequest(c, err)
		return
	}
	rate, err := floatQuery(c, "rate", s.opts.DefaultRate)
	if err != nil {
		badRequest(c, err)
		return
	}
	days, err := intQuery(c, "days", s.opts.DefaultDays)
	if err != nil {
		badRequest(c, err)
		return
	}
	restake, _ := strconv.ParseBool(c.DefaultQuery("restake", "false"))
	params := simulator.Params{Principal: amount, RatePct: rate, Days: days, Restake: restake}

	switch mode := c.DefaultQuery("mode", "simple"); mode {
	case "simple":
		c.JSON(http.StatusOK, gin.H{"mode": mode, "result": simulator.Simple(amount, rate, days)})
	case "compound":
		c.JSON(http.StatusOK, gin.H{"mode": mode, "result": simulator.Compound(params)})
	case "cycle":
		strategy, err := simulator.ParseStrategy(c.DefaultQuery("cycle", "4:3"))
		if err != nil {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"mode": mode, "result": simulator.Cycle(simulator.CycleParams{Params: params, Strategy: strategy})})
	default:
		badRequest(c, fmt.Errorf("mode %q: want simple, compound or cycle", mode))
	}
}

func (s *Server) getAlerts(c *gin.Context) {
	limit, err := intQuery(c, "limit", 20)
	if err != nil {
		badRequest(c, err)
		return
	}
	alerts, err := s.alerts.ListRecentAlerts(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// chainParam resolves a chain name, defaulting to the first configured chain.
func (s *Server) chainParam(raw string) (network.Config, error) {
	if raw == "" {
		return s.networks.All()[0], nil
	}
	return s.networks.Resolve(raw)
}

func sortParam(c *gin.Context) (sorting.Config, error) {
	key := c.Query("sort")
	if key == "" {
		return sorting.Config{}, nil
	}
	dir := c.DefaultQuery("dir", string(sorting.Asc))
	return sorting.ParseConfig(key + ":" + dir)
}

func pageParams(c *gin.Context) (int, int, error) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	size, err := intQuery(c, "size", 0)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func floatQuery(c *gin.Context, name string, def float64) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: not a number", name)
	}
	return v, nil
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: not an integer", name)
	}
	return v, nil
}
