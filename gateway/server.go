package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"github.com/Bunniapp/tokenomics-sub000/gateway/middleware"
	"github.com/Bunniapp/tokenomics-sub000/native/masterbunni"
	"github.com/Bunniapp/tokenomics-sub000/observability/metrics"
)

var errBadAddress = errors.New("gateway: invalid address")

// Server exposes the reward engine and its ledger bank over HTTP. Mutating
// endpoints are thin JSON wrappers over the dispatcher; the effective sender
// is taken from the request body, so any authentication must happen in front
// of this server.
type Server struct {
	engine  *masterbunni.Engine
	bank    *masterbunni.Bank
	logger  *slog.Logger
	obs     *middleware.Observability
	metrics *metrics.MasterbunniMetrics
}

func NewServer(engine *masterbunni.Engine, bank *masterbunni.Bank, logger *slog.Logger, obs *middleware.Observability) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:  engine,
		bank:    bank,
		logger:  logger,
		obs:     obs,
		metrics: metrics.Masterbunni(),
	}
}

// Router assembles the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	if s.obs != nil {
		r.Use(s.obs.Middleware("masterbunni"))
		r.Method(http.MethodGet, "/metrics", s.obs.MetricsHandler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(v1 chi.Router) {
		v1.Route("/rush", func(rush chi.Router) {
			rush.Post("/deposit", s.handleRushDeposit)
			rush.Post("/withdraw", s.handleRushWithdraw)
			rush.Post("/join", s.handleRushJoin)
			rush.Post("/exit", s.handleRushExit)
			rush.Post("/claim", s.handleRushClaim)
			rush.Post("/refund", s.handleRushRefund)
			rush.Post("/pool", s.handleRushPool)
			rush.Post("/claimable", s.handleRushClaimable)
		})
		v1.Route("/recur", func(recur chi.Router) {
			recur.Post("/incentivize", s.handleRecurIncentivize)
			recur.Post("/join", s.handleRecurJoin)
			recur.Post("/exit", s.handleRecurExit)
			recur.Post("/claim", s.handleRecurClaim)
			recur.Post("/pool", s.handleRecurPool)
			recur.Post("/earned", s.handleRecurEarned)
		})
		v1.Post("/unlock", s.handleUnlock)
		v1.Get("/locks/{user}/{token}", s.handleLockCount)
		v1.Route("/bank", func(bank chi.Router) {
			bank.Post("/mint", s.handleBankMint)
			bank.Post("/approve", s.handleBankApprove)
			bank.Post("/lock", s.handleBankLock)
		})
	})
	return r
}

type rushKeyJSON struct {
	StakeToken     string `json:"stakeToken"`
	StakeCap       string `json:"stakeCap"`
	StartTimestamp uint64 `json:"startTimestamp"`
	ProgramLength  uint64 `json:"programLength"`
}

func (k rushKeyJSON) decode() (masterbunni.RushPoolKey, error) {
	token, err := parseAddress(k.StakeToken)
	if err != nil {
		return masterbunni.RushPoolKey{}, err
	}
	cap256, err := parseAmount(k.StakeCap)
	if err != nil {
		return masterbunni.RushPoolKey{}, err
	}
	return masterbunni.RushPoolKey{
		StakeToken:     token,
		StakeCap:       cap256,
		StartTimestamp: k.StartTimestamp,
		ProgramLength:  k.ProgramLength,
	}, nil
}

type recurKeyJSON struct {
	StakeToken  string `json:"stakeToken"`
	RewardToken string `json:"rewardToken"`
	Duration    uint64 `json:"duration"`
}

func (k recurKeyJSON) decode() (masterbunni.RecurPoolKey, error) {
	stake, err := parseAddress(k.StakeToken)
	if err != nil {
		return masterbunni.RecurPoolKey{}, err
	}
	reward, err := parseAddress(k.RewardToken)
	if err != nil {
		return masterbunni.RecurPoolKey{}, err
	}
	return masterbunni.RecurPoolKey{StakeToken: stake, RewardToken: reward, Duration: k.Duration}, nil
}

type rushIncentiveRequest struct {
	Sender         string `json:"sender"`
	IncentiveToken string `json:"incentiveToken"`
	Recipient      string `json:"recipient"`
	Entries        []struct {
		Key    rushKeyJSON `json:"key"`
		Amount string      `json:"amount"`
	} `json:"entries"`
}

func (s *Server) decodeRushIncentive(r *http.Request) (common.Address, []masterbunni.RushIncentiveParams, common.Address, common.Address, error) {
	var req rushIncentiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return common.Address{}, nil, common.Address{}, common.Address{}, err
	}
	sender, err := parseAddress(req.Sender)
	if err != nil {
		return common.Address{}, nil, common.Address{}, common.Address{}, err
	}
	token, err := parseAddress(req.IncentiveToken)
	if err != nil {
		return common.Address{}, nil, common.Address{}, common.Address{}, err
	}
	recipient, err := parseAddress(req.Recipient)
	if err != nil {
		return common.Address{}, nil, common.Address{}, common.Address{}, err
	}
	params := make([]masterbunni.RushIncentiveParams, 0, len(req.Entries))
	for _, entry := range req.Entries {
		key, err := entry.Key.decode()
		if err != nil {
			return common.Address{}, nil, common.Address{}, common.Address{}, err
		}
		amount, err := parseAmount(entry.Amount)
		if err != nil {
			return common.Address{}, nil, common.Address{}, common.Address{}, err
		}
		params = append(params, masterbunni.RushIncentiveParams{Key: key, Amount: amount})
	}
	return sender, params, token, recipient, nil
}

func (s *Server) handleRushDeposit(w http.ResponseWriter, r *http.Request) {
	sender, params, token, recipient, err := s.decodeRushIncentive(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	accepted, err := s.engine.DepositIncentive(sender, params, token, recipient)
	if err != nil {
		s.fail(w, "rush_deposit", err)
		return
	}
	s.metrics.ObserveIncentiveCall("rush")
	writeJSON(w, map[string]string{"accepted": accepted.Dec()})
}

func (s *Server) handleRushWithdraw(w http.ResponseWriter, r *http.Request) {
	sender, params, token, recipient, err := s.decodeRushIncentive(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	accepted, err := s.engine.WithdrawIncentive(sender, params, token, recipient)
	if err != nil {
		s.fail(w, "rush_withdraw", err)
		return
	}
	s.metrics.ObserveIncentiveCall("rush")
	writeJSON(w, map[string]string{"accepted": accepted.Dec()})
}

type rushKeysRequest struct {
	Sender string        `json:"sender"`
	Keys   []rushKeyJSON `json:"keys"`
}

func (r rushKeysRequest) decode() (common.Address, []masterbunni.RushPoolKey, error) {
	sender, err := parseAddress(r.Sender)
	if err != nil {
		return common.Address{}, nil, err
	}
	keys := make([]masterbunni.RushPoolKey, 0, len(r.Keys))
	for _, k := range r.Keys {
		key, err := k.decode()
		if err != nil {
			return common.Address{}, nil, err
		}
		keys = append(keys, key)
	}
	return sender, keys, nil
}

func (s *Server) handleRushJoin(w http.ResponseWriter, r *http.Request) {
	var req rushKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sender, keys, err := req.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.JoinRushPool(sender, keys); err != nil {
		s.fail(w, "rush_join", err)
		return
	}
	s.metrics.ObserveJoin("rush")
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleRushExit(w http.ResponseWriter, r *http.Request) {
	var req rushKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sender, keys, err := req.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.ExitRushPool(sender, keys); err != nil {
		s.fail(w, "rush_exit", err)
		return
	}
	s.metrics.ObserveExit("rush")
	writeJSON(w, map[string]string{"status": "ok"})
}

type rushClaimRequest struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Claims    []struct {
		IncentiveToken string        `json:"incentiveToken"`
		Keys           []rushKeyJSON `json:"keys"`
	} `json:"claims"`
}

func (r rushClaimRequest) decode() (common.Address, []masterbunni.RushClaimParams, common.Address, error) {
	sender, err := parseAddress(r.Sender)
	if err != nil {
		return common.Address{}, nil, common.Address{}, err
	}
	recipient, err := parseAddress(r.Recipient)
	if err != nil {
		return common.Address{}, nil, common.Address{}, err
	}
	claims := make([]masterbunni.RushClaimParams, 0, len(r.Claims))
	for _, claim := range r.Claims {
		token, err := parseAddress(claim.IncentiveToken)
		if err != nil {
			return common.Address{}, nil, common.Address{}, err
		}
		keys := make([]masterbunni.RushPoolKey, 0, len(claim.Keys))
		for _, k := range claim.Keys {
			key, err := k.decode()
			if err != nil {
				return common.Address{}, nil, common.Address{}, err
			}
			keys = append(keys, key)
		}
		claims = append(claims, masterbunni.RushClaimParams{IncentiveToken: token, Keys: keys})
	}
	return sender, claims, recipient, nil
}

func (s *Server) handleRushClaim(w http.ResponseWriter, r *http.Request) {
	var req rushClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sender, claims, recipient, err := req.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.ClaimRushPool(sender, claims, recipient); err != nil {
		s.fail(w, "rush_claim", err)
		return
	}
	s.metrics.ObserveClaim("rush")
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleRushRefund(w http.ResponseWriter, r *http.Request) {
	var req rushClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sender, claims, recipient, err := req.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.RefundIncentive(sender, claims, recipient); err != nil {
		s.fail(w, "rush_refund", err)
		return
	}
	s.metrics.ObserveRefund()
	writeJSON(w, map[string]string{"status": "ok"})
}

type rushPoolRequest struct {
	Key            rushKeyJSON `json:"key"`
	User           string      `json:"user"`
	IncentiveToken string      `json:"incentiveToken"`
}

func (s *Server) handleRushPool(w http.ResponseWriter, r *http.Request) {
	var req rushPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	key, err := req.Key.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pool, err := s.engine.RushPoolStake(key)
	if err != nil {
		s.fail(w, "rush_pool", err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"poolId":      key.ID().Hex(),
		"stakeAmount": pool.StakeAmount.Dec(),
		"stakeXTime":  pool.StakeXTimeStored.Dec(),
		"lastUpdate":  pool.LastUpdate,
	})
}

func (s *Server) handleRushClaimable(w http.ResponseWriter, r *http.Request) {
	var req rushPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	key, err := req.Key.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := parseAddress(req.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, err := parseAddress(req.IncentiveToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	claimable, err := s.engine.RushClaimable(key, user, token)
	if err != nil {
		s.fail(w, "rush_claimable", err)
		return
	}
	writeJSON(w, map[string]string{"claimable": claimable.Dec()})
}

type recurIncentiveRequest struct {
	Sender         string `json:"sender"`
	IncentiveToken string `json:"incentiveToken"`
	Entries        []struct {
		Key    recurKeyJSON `json:"key"`
		Amount string       `json:"amount"`
	} `json:"entries"`
}

func (s *Server) handleRecurIncentivize(w http.ResponseWriter, r *http.Request) {
	var req recurIncentiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sender, err := parseAddress(req.Sender)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, err := parseAddress(req.IncentiveToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	params := make([]masterbunni.RecurIncentiveParams, 0, len(req.Entries))
	for _, entry := range req.Entries {
		key, err := entry.Key.decode()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		amount, err := parseAmount(entry.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		params = append(params, masterbunni.RecurIncentiveParams{Key: key, Amount: amount})
	}
	accepted, err := s.engine.IncentivizeRecurPool(sender, params, token)
	if err != nil {
		s.fail(w, "recur_incentivize", err)
		return
	}
	s.metrics.ObserveIncentiveCall("recur")
	writeJSON(w, map[string]string{"accepted": accepted.Dec()})
}

type recurKeysRequest struct {
	Sender string         `json:"sender"`
	Keys   []recurKeyJSON `json:"keys"`
}

func (r recurKeysRequest) decode() (common.Address, []masterbunni.RecurPoolKey, error) {
	sender, err := parseAddress(r.Sender)
	if err != nil {
		return common.Address{}, nil, err
	}
	keys := make([]masterbunni.RecurPoolKey, 0, len(r.Keys))
	for _, k := range r.Keys {
		key, err := k.decode()
		if err != nil {
			return common.Address{}, nil, err
		}
		keys = append(keys, key)
	}
	return sender, keys, nil
}

func (s *Server) handleRecurJoin(w http.ResponseWriter, r *http.Request) {
	var req recurKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sender, keys, err := req.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.JoinRecurPool(sender, keys); err != nil {
		s.fail(w, "recur_join", err)
		return
	}
	s.metrics.ObserveJoin("recur")
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleRecurExit(w http.ResponseWriter, r *http.Request) {
	var req recurKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sender, keys, err := req.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.ExitRecurPool(sender, keys); err != nil {
		s.fail(w, "recur_exit", err)
		return
	}
	s.metrics.ObserveExit("recur")
	writeJSON(w, map[string]string{"status": "ok"})
}

type recurClaimRequest struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Claims    []struct {
		IncentiveToken string         `json:"incentiveToken"`
		Keys           []recurKeyJSON `json:"keys"`
	} `json:"claims"`
}

func (s *Server) handleRecurClaim(w http.ResponseWriter, r *http.Request) {
	var req recurClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sender, err := parseAddress(req.Sender)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	recipient, err := parseAddress(req.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	claims := make([]masterbunni.RecurClaimParams, 0, len(req.Claims))
	for _, claim := range req.Claims {
		token, err := parseAddress(claim.IncentiveToken)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		keys := make([]masterbunni.RecurPoolKey, 0, len(claim.Keys))
		for _, k := range claim.Keys {
			key, err := k.decode()
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			keys = append(keys, key)
		}
		claims = append(claims, masterbunni.RecurClaimParams{IncentiveToken: token, Keys: keys})
	}
	if err := s.engine.ClaimRecurPool(sender, claims, recipient); err != nil {
		s.fail(w, "recur_claim", err)
		return
	}
	s.metrics.ObserveClaim("recur")
	writeJSON(w, map[string]string{"status": "ok"})
}

type recurPoolRequest struct {
	Key  recurKeyJSON `json:"key"`
	User string       `json:"user"`
}

func (s *Server) handleRecurPool(w http.ResponseWriter, r *http.Request) {
	var req recurPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	key, err := req.Key.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pool, err := s.engine.RecurPool(key)
	if err != nil {
		s.fail(w, "recur_pool", err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"poolId":               key.ID().Hex(),
		"totalSupply":          pool.TotalSupply.Dec(),
		"rewardRate":           pool.RewardRate.Dec(),
		"rewardPerTokenStored": pool.RewardPerTokenStored.Dec(),
		"periodFinish":         pool.PeriodFinish,
		"lastUpdateTime":       pool.LastUpdateTime,
	})
}

func (s *Server) handleRecurEarned(w http.ResponseWriter, r *http.Request) {
	var req recurPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	key, err := req.Key.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := parseAddress(req.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	earned, err := s.engine.RecurEarned(key, user)
	if err != nil {
		s.fail(w, "recur_earned", err)
		return
	}
	writeJSON(w, map[string]string{"earned": earned.Dec()})
}

type unlockRequest struct {
	Sender string   `json:"sender"`
	Tokens []string `json:"tokens"`
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sender, err := parseAddress(req.Sender)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tokens := make([]common.Address, 0, len(req.Tokens))
	for _, t := range req.Tokens {
		token, err := parseAddress(t)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		tokens = append(tokens, token)
	}
	if err := s.engine.Unlock(sender, tokens); err != nil {
		s.fail(w, "unlock", err)
		return
	}
	s.metrics.ObserveUnlock()
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleLockCount(w http.ResponseWriter, r *http.Request) {
	user, err := parseAddress(chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, err := parseAddress(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	count, err := s.engine.LockCount(user, token)
	if err != nil {
		s.fail(w, "lock_count", err)
		return
	}
	writeJSON(w, map[string]uint64{"count": count})
}

type bankMintRequest struct {
	Token  string `json:"token"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleBankMint(w http.ResponseWriter, r *http.Request) {
	var req bankMintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, err := parseAddress(req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := parseAddress(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.bank.Mint(token, to, amount); err != nil {
		s.fail(w, "bank_mint", err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

type bankApproveRequest struct {
	Token   string `json:"token"`
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

func (s *Server) handleBankApprove(w http.ResponseWriter, r *http.Request) {
	var req bankApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, err := parseAddress(req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	spender, err := parseAddress(req.Spender)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.bank.Approve(token, owner, spender, amount); err != nil {
		s.fail(w, "bank_approve", err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

type bankLockRequest struct {
	Token     string         `json:"token"`
	User      string         `json:"user"`
	RushKeys  []rushKeyJSON  `json:"rushKeys"`
	RecurKeys []recurKeyJSON `json:"recurKeys"`
}

func (s *Server) handleBankLock(w http.ResponseWriter, r *http.Request) {
	var req bankLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, err := parseAddress(req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := parseAddress(req.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data := masterbunni.LockCallbackData{}
	for _, k := range req.RushKeys {
		key, err := k.decode()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		data.RushKeys = append(data.RushKeys, key)
	}
	for _, k := range req.RecurKeys {
		key, err := k.decode()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		data.RecurKeys = append(data.RecurKeys, key)
	}
	if err := s.bank.Lock(token, user, s.engine.Self(), data); err != nil {
		s.fail(w, "bank_lock", err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	s.metrics.ObserveRejection(op)
	s.logger.Error("operation failed", "op", op, "error", err)
	writeError(w, http.StatusUnprocessableEntity, err)
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, errBadAddress
	}
	return common.HexToAddress(raw), nil
}

func parseAmount(raw string) (*uint256.Int, error) {
	if raw == "" {
		return uint256.NewInt(0), nil
	}
	b, ok := new(big.Int).SetString(raw, 10)
	if !ok || b.Sign() < 0 {
		return nil, errors.New("gateway: invalid amount")
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, errors.New("gateway: amount overflow")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
