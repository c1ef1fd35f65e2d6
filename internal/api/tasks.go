package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"moo-rewards-go/internal/models"
	"moo-rewards-go/internal/store"
)

// VerifyTask advances one social task toward completed. The twitter follow
// cannot be checked server-side, so it completes on the second call after
// an idle->verifying grace step; telegram and community joins are verified
// against the Bot API before completing. The referral task only completes
// through ApplyReferral.
func (s *Service) VerifyTask(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	task := chi.URLParam(r, "task")
	if !s.requireOwner(w, r, userID) {
		return
	}

	switch task {
	case models.TaskTwitter, models.TaskTelegram, models.TaskCommunity:
	case models.TaskReferral:
		respondError(w, http.StatusBadRequest, "referral task completes when a referral code is applied")
		return
	default:
		respondError(w, http.StatusBadRequest, "unknown task")
		return
	}

	numericID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	// Membership lookups happen outside the store transaction; only the
	// status transition itself is transactional.
	joined := false
	switch task {
	case models.TaskTelegram:
		joined, err = s.membership.IsChatMember(s.telegram.RewardChatID, numericID)
	case models.TaskCommunity:
		joined, err = s.membership.IsChatMember(s.telegram.CommunityChatID, numericID)
	}
	if err != nil {
		zap.L().Error("Membership check failed",
			zap.String("user_id", userID),
			zap.String("task", task),
			zap.Error(err))
		respondError(w, http.StatusBadGateway, "membership check unavailable")
		return
	}

	account, err := s.store.UpdateAccount(r.Context(), userID, func(account *models.UserAccount) error {
		current := account.SocialTasks[task]
		if current == models.TaskCompleted {
			return store.ErrNoChange
		}

		switch task {
		case models.TaskTwitter:
			if current == models.TaskIdle {
				account.SocialTasks[task] = models.TaskVerifying
			} else {
				account.SocialTasks[task] = models.TaskCompleted
			}
		default:
			if joined {
				account.SocialTasks[task] = models.TaskCompleted
			} else if current == models.TaskIdle {
				account.SocialTasks[task] = models.TaskVerifying
			} else {
				return store.ErrNoChange
			}
		}
		return nil
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, models.TaskResult{Task: task, Status: account.SocialTasks[task]})
}
