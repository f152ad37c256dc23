package message

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/roomcast/qabroadcast/internal/content"
	"github.com/roomcast/qabroadcast/internal/device"
)

// WriterConfig holds configuration for creating a Writer.
type WriterConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// UserID is stored as the initiating user of every message.
	UserID int64

	// Category defaults to DefaultCategory.
	Category string

	// Expiry defaults to DefaultExpiry.
	Expiry int

	// ZoneID defaults to DefaultZoneID.
	ZoneID int
}

// Writer stores one broadcast: the message, its hotels, the info batch and
// one recipient per device, then releases the batch by marking it pending.
type Writer struct {
	repo     Repository
	logger   zerolog.Logger
	userID   int64
	category string
	expiry   int
	zoneID   int
}

// NewWriter creates a new message writer.
func NewWriter(cfg WriterConfig) *Writer {
	if cfg.Category == "" {
		cfg.Category = DefaultCategory
	}
	if cfg.Expiry == 0 {
		cfg.Expiry = DefaultExpiry
	}
	if cfg.ZoneID == 0 {
		cfg.ZoneID = DefaultZoneID
	}

	return &Writer{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		userID:   cfg.UserID,
		category: cfg.Category,
		expiry:   cfg.Expiry,
		zoneID:   cfg.ZoneID,
	}
}

// Request is the input of one Write.
type Request struct {
	// SendAt is the send timestamp, already in the configured location.
	SendAt  time.Time
	Targets []device.Target
	Content content.Rendered
}

// Result describes a stored broadcast.
type Result struct {
	MessageID     int64           `json:"id"`
	MessageInfoID int64           `json:"message_info_id"`
	SendAt        time.Time       `json:"send_at"`
	Devices       []device.Target `json:"devices"`
}

// Write runs the create sequence. Each step completes before the next one
// starts; the hotel and recipient steps fan out their creates and join.
// A failure aborts the remaining steps and leaves written rows in place.
func (w *Writer) Write(ctx context.Context, req Request) (*Result, error) {
	if len(req.Targets) == 0 {
		return nil, ErrNoRecipients
	}

	messageID, err := w.createMessage(ctx, req)
	if err != nil {
		return nil, err
	}
	logger := w.logger.With().Int64("message_id", messageID).Logger()

	hotels := distinctHotels(req.Targets)
	if err := w.createHotels(ctx, messageID, hotels); err != nil {
		return nil, err
	}
	logger.Debug().Int("hotels", len(hotels)).Msg("message hotels created")

	infoID, err := w.createInfo(ctx, messageID, req.SendAt)
	if err != nil {
		return nil, err
	}
	logger = logger.With().Int64("message_info_id", infoID).Logger()

	if err := w.createRecipients(ctx, messageID, infoID, req.Targets); err != nil {
		return nil, err
	}
	logger.Debug().Int("recipients", len(req.Targets)).Msg("message recipients created")

	if err := w.repo.UpdateInfoStatus(ctx, infoID, InfoStatusPending); err != nil {
		return nil, fmt.Errorf("%w: mark message info %d pending: %w", ErrPersistence, infoID, err)
	}

	logger.Info().
		Int("hotels", len(hotels)).
		Int("recipients", len(req.Targets)).
		Msg("broadcast message stored")

	return &Result{
		MessageID:     messageID,
		MessageInfoID: infoID,
		SendAt:        req.SendAt,
		Devices:       append([]device.Target(nil), req.Targets...),
	}, nil
}

func (w *Writer) createMessage(ctx context.Context, req Request) (int64, error) {
	hotelIDs := make([]string, 0, len(req.Targets))
	rooms := make([]string, 0, len(req.Targets))
	for _, t := range req.Targets {
		id := strconv.FormatInt(t.HotelID, 10)
		hotelIDs = append(hotelIDs, id)
		rooms = append(rooms, id+":"+t.HotelRoomNumber)
	}

	msg := &Message{
		Action:           ActionBroadcast,
		UserID:           w.userID,
		Status:           StatusPending,
		DeviceStatus:     DeviceStatusSpecific,
		HotelIDs:         strings.Join(hotelIDs, ","),
		HotelRoomNumbers: strings.Join(rooms, ","),
		Dates:            req.SendAt.Format(DateLayout),
		Time:             req.SendAt.Format(TimeLayout),
		Expiry:           w.expiry,
		ZoneID:           w.zoneID,
		Locales:          req.Content.Locales,
		Content:          req.Content.Content,
		Category:         w.category,
	}

	id, err := w.repo.CreateMessage(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("%w: create message: %w", ErrPersistence, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: create message: %w", ErrPersistence, ErrMissingID)
	}
	return id, nil
}

func (w *Writer) createHotels(ctx context.Context, messageID int64, hotelIDs []int64) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, hotelID := range hotelIDs {
		g.Go(func() error {
			id, err := w.repo.CreateHotel(gctx, &Hotel{MessageID: messageID, HotelID: hotelID})
			if err != nil {
				return fmt.Errorf("%w: create message hotel %d: %w", ErrPersistence, hotelID, err)
			}
			if id <= 0 {
				return fmt.Errorf("%w: create message hotel %d: %w", ErrPersistence, hotelID, ErrMissingID)
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *Writer) createInfo(ctx context.Context, messageID int64, sendAt time.Time) (int64, error) {
	id, err := w.repo.CreateInfo(ctx, &Info{
		MessageID: messageID,
		SendAt:    sendAt,
		Status:    InfoStatusInitialising,
		Expiry:    w.expiry,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: create message info: %w", ErrPersistence, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: create message info: %w", ErrPersistence, ErrMissingID)
	}
	return id, nil
}

func (w *Writer) createRecipients(ctx context.Context, messageID, infoID int64, targets []device.Target) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			id, err := w.repo.CreateRecipient(gctx, &Recipient{
				MessageID:       messageID,
				MessageInfoID:   infoID,
				HotelID:         t.HotelID,
				HotelRoomNumber: t.HotelRoomNumber,
			})
			if err != nil {
				return fmt.Errorf("%w: create recipient %d:%s: %w",
					ErrPersistence, t.HotelID, t.HotelRoomNumber, err)
			}
			if id <= 0 {
				return fmt.Errorf("%w: create recipient %d:%s: %w",
					ErrPersistence, t.HotelID, t.HotelRoomNumber, ErrMissingID)
			}
			return nil
		})
	}
	return g.Wait()
}

// distinctHotels returns the hotel ids of targets in first-seen order.
func distinctHotels(targets []device.Target) []int64 {
	seen := make(map[int64]struct{}, len(targets))
	ids := make([]int64, 0, len(targets))
	for _, t := range targets {
		if _, ok := seen[t.HotelID]; ok {
			continue
		}
		seen[t.HotelID] = struct{}{}
		ids = append(ids, t.HotelID)
	}
	return ids
}
