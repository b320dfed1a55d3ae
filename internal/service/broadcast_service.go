package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
)

const (
	defaultBroadcastBatchSize  = 30
	defaultBroadcastBatchDelay = time.Second
)

type BroadcastService struct {
	uow           uow.UOW
	broadcastRepo BroadcastRepository
	userRepo      UserRepository
	sender        Sender
	batchSize     uint
	batchDelay    time.Duration
	l             *logrus.Entry
}

func NewBroadcastService(u uow.UOW, sender Sender, l *logrus.Logger) (*BroadcastService, error) {
	broadcastRepo, broadcastRepoErr := uow.GetRepositoryAs[BroadcastRepository](u, uow.RepositoryName(repoargs.BroadcastRepoName))
	if broadcastRepoErr != nil {
		return nil, broadcastRepoErr
	}
	userRepo, userRepoErr := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if userRepoErr != nil {
		return nil, userRepoErr
	}
	return &BroadcastService{
		uow:           u,
		broadcastRepo: broadcastRepo,
		userRepo:      userRepo,
		sender:        sender,
		batchSize:     defaultBroadcastBatchSize,
		batchDelay:    defaultBroadcastBatchDelay,
		l:             l.WithField("component", "broadcast"),
	}, nil
}

func (s *BroadcastService) SetBatchSize(size uint) *BroadcastService {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// SetBatchDelay задает паузу между пачками — защита от лимитов транспорта.
func (s *BroadcastService) SetBatchDelay(delay time.Duration) *BroadcastService {
	if delay >= 0 {
		s.batchDelay = delay
	}
	return s
}

// Start создает рассылку и прогоняет ее по всей базе юзеров с нулевого курсора.
// Текст сохраняется вместе с рассылкой: прерванный прогон возобновляется
// восстановлением без участия инициатора.
func (s *BroadcastService) Start(ctx context.Context, message string) (*domain.Broadcast, error) {
	total, totalErr := s.userRepo.Count(ctx)
	if totalErr != nil {
		return nil, fmt.Errorf("starting broadcast: %w", totalErr)
	}

	broadcast, createErr := s.broadcastRepo.Create(ctx, uuid.NewString(), message, total)
	if createErr != nil {
		return nil, fmt.Errorf("starting broadcast: %w", createErr)
	}

	if runErr := s.run(ctx, broadcast); runErr != nil {
		return broadcast, runErr
	}
	return broadcast, nil
}

// Resume продолжает незавершенную рассылку с зафиксированного курсора.
func (s *BroadcastService) Resume(ctx context.Context, broadcast domain.Broadcast) error {
	if broadcast.Status == domain.BroadcastStatusDone {
		return nil
	}
	if broadcast.Status == domain.BroadcastStatusInterrupted {
		if err := s.broadcastRepo.UpdateStatus(ctx, broadcast.ID, domain.BroadcastStatusRunning); err != nil {
			return fmt.Errorf("resuming broadcast %s: %w", broadcast.ID, err)
		}
	}
	return s.run(ctx, &broadcast)
}

// Unfinished возвращает рассылки, требующие возобновления.
func (s *BroadcastService) Unfinished(ctx context.Context, limit uint) ([]domain.Broadcast, error) {
	broadcasts, err := s.broadcastRepo.GetUnfinished(ctx, limit)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return broadcasts, nil
}

// run гонит рассылку пачками по keyset-курсору. Курсор фиксируется после каждой
// пачки, поэтому при падении возможен повтор сообщений только в пределах одной
// пачки; пропуски исключены. Отказ доставки отдельному получателю не
// останавливает прогон.
func (s *BroadcastService) run(ctx context.Context, broadcast *domain.Broadcast) error {
	cursor := broadcast.Cursor
	var sent, failed int64

	for {
		if ctx.Err() != nil {
			return s.interrupt(ctx, broadcast.ID, ctx.Err())
		}

		ids, listErr := s.userRepo.ListIDs(ctx, cursor, s.batchSize)
		if listErr != nil {
			return s.interrupt(ctx, broadcast.ID, listErr)
		}
		if len(ids) == 0 {
			break
		}

		for _, userID := range ids {
			if sendErr := s.sender.SendTo(ctx, userID, broadcast.Message); sendErr != nil {
				failed++
				s.l.WithError(sendErr).WithFields(logrus.Fields{
					"broadcastID": broadcast.ID,
					"userID":      userID,
				}).Warn("broadcast delivery failed")
				continue
			}
			sent++
		}

		cursor = ids[len(ids)-1]
		if advErr := s.broadcastRepo.AdvanceCursor(ctx, broadcast.ID, cursor); advErr != nil {
			return s.interrupt(ctx, broadcast.ID, advErr)
		}

		if s.batchDelay > 0 && uint(len(ids)) == s.batchSize {
			select {
			case <-ctx.Done():
				return s.interrupt(ctx, broadcast.ID, ctx.Err())
			case <-time.After(s.batchDelay):
			}
		}
	}

	if doneErr := s.broadcastRepo.UpdateStatus(ctx, broadcast.ID, domain.BroadcastStatusDone); doneErr != nil {
		return fmt.Errorf("finishing broadcast %s: %w", broadcast.ID, doneErr)
	}
	s.l.WithFields(logrus.Fields{
		"broadcastID": broadcast.ID,
		"sent":        sent,
		"failed":      failed,
	}).Info("broadcast finished")
	return nil
}

// interrupt помечает рассылку прерванной, не теряя исходную ошибку. Отмена
// контекста не мешает записи статуса: используется отвязанный контекст.
func (s *BroadcastService) interrupt(ctx context.Context, broadcastID string, cause error) error {
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if markErr := s.broadcastRepo.UpdateStatus(markCtx, broadcastID, domain.BroadcastStatusInterrupted); markErr != nil {
		s.l.WithError(markErr).WithField("broadcastID", broadcastID).Error("failed to mark broadcast interrupted")
	}
	return fmt.Errorf("broadcast %s interrupted: %w", broadcastID, cause)
}
