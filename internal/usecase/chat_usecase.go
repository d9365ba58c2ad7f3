package usecase

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"taskmate/internal/domain/entity"
	"taskmate/internal/domain/repository"
	"taskmate/internal/infrastructure/ratelimit"
	"taskmate/pkg/errors"
)

const systemSenderID = "system"

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	taskRepo    repository.TaskRepository
	publisher   RealtimePublisher
	notifier    Notifier
	rateLimiter *ratelimit.RateLimiter
	cleared     *clearedSet
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	taskRepo repository.TaskRepository,
	publisher RealtimePublisher,
	notifier Notifier,
) *ChatUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ChatUseCase{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		taskRepo:    taskRepo,
		publisher:   publisher,
		notifier:    notifier,
		rateLimiter: rateLimiter,
		cleared:     newClearedSet(),
	}
}

type CreateChatInput struct {
	TaskID     string
	CustomerID string
	TaskerID   string
}

type SendMessageInput struct {
	ChatID string
	Body   string
	Type   string
}

type ChatSummary struct {
	*entity.Chat
	UnreadCount int64        `json:"unread_count"`
	OtherUser   *entity.User `json:"other_user,omitempty"`
}

type MessageResponse struct {
	*entity.Message
	Sender *entity.User `json:"sender,omitempty"`
}

// GetOrCreateChat looks up the unique (task, customer, tasker) chat, creating
// it when absent. Two participants opening the conversation at the same time
// both get the same chat: the loser of the create race re-fetches the winner
// instead of surfacing the conflict.
func (uc *ChatUseCase) GetOrCreateChat(ctx context.Context, callerID string, input CreateChatInput) (*ChatSummary, error) {
	if input.CustomerID == input.TaskerID {
		return nil, errors.Validation("Customer and tasker must be different users", nil)
	}
	if callerID != input.CustomerID && callerID != input.TaskerID {
		return nil, errors.Forbidden("Caller is not a participant of this chat", nil)
	}

	allowed, waitTime := uc.rateLimiter.Allow(callerID, "create_chat")
	if !allowed {
		log.Printf("GetOrCreateChat Rate Limited: User %s must wait %v", callerID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before opening another chat")
	}

	task, err := uc.taskRepo.GetByID(ctx, input.TaskID)
	if err != nil {
		log.Printf("GetOrCreateChat Error: Task %s not found: %v", input.TaskID, err)
		return nil, err
	}
	if task.CustomerID != input.CustomerID {
		return nil, errors.Validation("Customer does not own this task", nil)
	}
	if task.Status == entity.TaskStatusCompleted {
		return nil, errors.Validation("Task is already completed", nil)
	}

	chat, err := uc.chatRepo.GetByTriple(ctx, input.TaskID, input.CustomerID, input.TaskerID)
	if err != nil && !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	if chat == nil {
		chat = &entity.Chat{
			TaskID:       input.TaskID,
			CustomerID:   input.CustomerID,
			TaskerID:     input.TaskerID,
			Participants: []string{input.CustomerID, input.TaskerID},
			Status:       entity.ChatStatusActive,
		}

		if err := uc.chatRepo.Create(ctx, chat); err != nil {
			if !errors.Is(err, "CONFLICT") {
				log.Printf("GetOrCreateChat Error: Failed to create chat for task %s: %v", input.TaskID, err)
				return nil, err
			}
			// Lost the race: the other participant created it first.
			chat, err = uc.chatRepo.GetByTriple(ctx, input.TaskID, input.CustomerID, input.TaskerID)
			if err != nil {
				return nil, err
			}
		}
	}

	summary := &ChatSummary{Chat: chat}
	if other, err := uc.userRepo.GetByID(ctx, chat.OtherParticipant(callerID)); err == nil {
		summary.OtherUser = other
	}
	return summary, nil
}

// ListChats is the aggregator: every chat the viewer participates in,
// annotated with the denormalized last-message preview and an authoritative
// unread count per chat. The viewer's optimistic overrides are discarded
// before counting; this call is the refresh that supersedes them.
func (uc *ChatUseCase) ListChats(ctx context.Context, userID string) ([]*ChatSummary, error) {
	uc.cleared.discard(userID)

	chats, err := uc.chatRepo.ListByUserID(ctx, userID)
	if err != nil {
		log.Printf("ListChats Error: Failed to list chats for user %s: %v", userID, err)
		return nil, err
	}

	summaries := make([]*ChatSummary, len(chats))
	g, gctx := errgroup.WithContext(ctx)

	// One unread-count query per chat, issued concurrently so latency stays
	// bounded as the chat count grows.
	for i, chat := range chats {
		i, chat := i, chat
		g.Go(func() error {
			count, err := uc.messageRepo.CountUnread(gctx, chat.ID, userID)
			if err != nil {
				return err
			}

			summary := &ChatSummary{Chat: chat, UnreadCount: count}
			if other, err := uc.userRepo.GetByID(gctx, chat.OtherParticipant(userID)); err == nil {
				summary.OtherUser = other
			} else {
				log.Printf("ListChats Warning: Other user %s not found for chat %s: %v", chat.OtherParticipant(userID), chat.ID, err)
			}
			summaries[i] = summary
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Newest conversation first; chats with no messages yet sort after all
	// chats that have them, by chat creation time.
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		aEmpty, bEmpty := a.LastMessageAt.IsZero(), b.LastMessageAt.IsZero()
		if aEmpty != bEmpty {
			return bEmpty
		}
		if aEmpty {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.LastMessageAt.After(b.LastMessageAt)
	})

	return summaries, nil
}

func (uc *ChatUseCase) GetChatByID(ctx context.Context, userID, chatID string) (*ChatSummary, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}

	count, err := uc.CountUnread(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	summary := &ChatSummary{Chat: chat, UnreadCount: count}
	if other, err := uc.userRepo.GetByID(ctx, chat.OtherParticipant(userID)); err == nil {
		summary.OtherUser = other
	}
	return summary, nil
}

// ListMessages returns one page in chronological order. The store hands back
// newest-first; the page is reversed here so callers always render oldest
// first. Sender profiles are joined at fetch time, so a display-name edit
// shows up on the next fetch without rewriting stored rows.
func (uc *ChatUseCase) ListMessages(ctx context.Context, userID, chatID string, limit, offset int) ([]*MessageResponse, int64, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, 0, err
	}
	if !chat.HasParticipant(userID) {
		return nil, 0, errors.Forbidden("User is not a participant in this chat", nil)
	}

	messages, total, err := uc.messageRepo.ListByChat(ctx, chatID, limit, offset)
	if err != nil {
		log.Printf("ListMessages Error: Failed to list messages for chat %s: %v", chatID, err)
		return nil, 0, err
	}

	senders := make(map[string]*entity.User, 2)
	responses := make([]*MessageResponse, 0, len(messages))

	// Reverse newest-first storage order into display order.
	for i := len(messages) - 1; i >= 0; i-- {
		message := messages[i]
		resp := &MessageResponse{Message: message}

		if message.SenderID != systemSenderID {
			sender, ok := senders[message.SenderID]
			if !ok {
				sender, err = uc.userRepo.GetByID(ctx, message.SenderID)
				if err != nil {
					log.Printf("ListMessages Warning: Sender %s not found for message %s: %v", message.SenderID, message.ID, err)
				}
				senders[message.SenderID] = sender
			}
			resp.Sender = sender
		}

		responses = append(responses, resp)
	}

	return responses, total, nil
}

// SendMessage is the send pipeline: validate, persist, refresh the parent
// chat's last-message cache, fan out realtime updates, dispatch the push
// notification. Once the insert lands the message counts as sent; cache and
// notification failures are logged and swallowed.
func (uc *ChatUseCase) SendMessage(ctx context.Context, userID string, input SendMessageInput) (*MessageResponse, error) {
	allowed, waitTime := uc.rateLimiter.Allow(userID, "send_message")
	if !allowed {
		log.Printf("SendMessage Rate Limited: User %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message")
	}

	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, errors.Validation("Message body must not be empty", nil)
	}

	messageType := input.Type
	if messageType == "" {
		messageType = entity.MessageTypeText
	}
	if !entity.ValidMessageType(messageType) {
		return nil, errors.Validation("Unknown message type", nil)
	}

	chat, err := uc.chatRepo.GetByID(ctx, input.ChatID)
	if err != nil {
		log.Printf("SendMessage Error: Chat %s not found: %v", input.ChatID, err)
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}
	if chat.Status == entity.ChatStatusBlocked {
		return nil, errors.Forbidden("Chat is blocked", nil)
	}

	sender, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		log.Printf("SendMessage Error: Sender %s not found: %v", userID, err)
		return nil, err
	}

	message := &entity.Message{
		ChatID:   input.ChatID,
		SenderID: userID,
		Body:     body,
		Type:     messageType,
		Read:     false,
	}

	if err := uc.messageRepo.Create(ctx, message); err != nil {
		log.Printf("SendMessage Error: Failed to persist message for chat %s: %v", input.ChatID, err)
		return nil, err
	}

	receiverID := chat.OtherParticipant(userID)

	// The receiver's optimistic zero is stale the moment a new message lands.
	uc.cleared.invalidate(receiverID, chat.ID)

	// Last-message cache refresh is best-effort: the message row is durable,
	// and the aggregator self-heals the preview on its next pass.
	chat.LastMessage = body
	chat.LastMessageAt = message.CreatedAt
	chat.LastMessageFrom = userID
	if chat.Status == entity.ChatStatusArchived {
		chat.Status = entity.ChatStatusActive
	}
	if err := uc.chatRepo.Update(ctx, chat); err != nil {
		log.Printf("SendMessage Warning: Message %s sent but last-message cache update failed for chat %s: %v", message.ID, chat.ID, err)
	}

	uc.publishNewMessage(chat, message, sender)

	if err := uc.notifier.NotifyNewMessage(ctx, chat.ID, userID, receiverID, body, sender.DisplayName); err != nil {
		log.Printf("SendMessage Warning: Notification dispatch failed for chat %s: %v", chat.ID, err)
	}

	return &MessageResponse{Message: message, Sender: sender}, nil
}

// SendSystemMessage records a system event in the chat. System messages are
// born read so they never show up in unread counts.
func (uc *ChatUseCase) SendSystemMessage(ctx context.Context, chatID, body string) (*entity.Message, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	message := &entity.Message{
		ChatID:   chatID,
		SenderID: systemSenderID,
		Body:     body,
		Type:     entity.MessageTypeSystem,
		Read:     true,
		ReadAt:   &now,
	}

	if err := uc.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	chat.LastMessage = body
	chat.LastMessageAt = message.CreatedAt
	chat.LastMessageFrom = systemSenderID
	if err := uc.chatRepo.Update(ctx, chat); err != nil {
		log.Printf("SendSystemMessage Warning: Cache update failed for chat %s: %v", chatID, err)
	}

	uc.publishNewMessage(chat, message, nil)

	return message, nil
}

// MarkChatRead flips every message from the other participant to read. The
// viewer's unread count is optimistically zeroed first so the UI can settle
// before the store round trip completes.
func (uc *ChatUseCase) MarkChatRead(ctx context.Context, userID, chatID string) error {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this chat", nil)
	}

	uc.cleared.set(userID, chatID)

	if err := uc.messageRepo.MarkRead(ctx, chatID, userID); err != nil {
		log.Printf("MarkChatRead Error: Failed to mark chat %s read for user %s: %v", chatID, userID, err)
		return err
	}

	return nil
}

// CountUnread is the per-chat unread counter: messages from the other
// participant not yet read, counted in the store. An optimistic override
// short-circuits to zero until a new message or a ListChats refresh
// invalidates it.
func (uc *ChatUseCase) CountUnread(ctx context.Context, userID, chatID string) (int64, error) {
	if uc.cleared.has(userID, chatID) {
		return 0, nil
	}
	return uc.messageRepo.CountUnread(ctx, chatID, userID)
}

// CountAllUnread sums unread counts across every chat the user can see.
func (uc *ChatUseCase) CountAllUnread(ctx context.Context, userID string) (int64, error) {
	chats, err := uc.chatRepo.ListByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}

	counts := make([]int64, len(chats))
	g, gctx := errgroup.WithContext(ctx)
	for i, chat := range chats {
		i, chat := i, chat
		g.Go(func() error {
			count, err := uc.CountUnread(gctx, userID, chat.ID)
			if err != nil {
				return err
			}
			counts[i] = count
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total int64
	for _, count := range counts {
		total += count
	}
	return total, nil
}

// DeleteMessage removes a message the caller sent. Anyone else gets
// Forbidden and the row stays untouched.
func (uc *ChatUseCase) DeleteMessage(ctx context.Context, userID, chatID, messageID string) error {
	message, err := uc.messageRepo.GetByID(ctx, chatID, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != userID {
		return errors.Forbidden("Only the sender can delete a message", nil)
	}

	return uc.messageRepo.Delete(ctx, chatID, messageID)
}

func (uc *ChatUseCase) ArchiveChat(ctx context.Context, userID, chatID string) error {
	return uc.setChatStatus(ctx, userID, chatID, entity.ChatStatusArchived)
}

func (uc *ChatUseCase) BlockChat(ctx context.Context, userID, chatID string) error {
	if err := uc.setChatStatus(ctx, userID, chatID, entity.ChatStatusBlocked); err != nil {
		return err
	}
	if _, err := uc.SendSystemMessage(ctx, chatID, "Conversation blocked"); err != nil {
		log.Printf("BlockChat Warning: System message failed for chat %s: %v", chatID, err)
	}
	return nil
}

func (uc *ChatUseCase) setChatStatus(ctx context.Context, userID, chatID, status string) error {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this chat", nil)
	}

	chat.Status = status
	return uc.chatRepo.Update(ctx, chat)
}

// CompleteTask purges the task's chats together with every message they own,
// then marks the task completed. Only the customer who posted the task may
// close it. The purge runs first: if it fails partway, the task stays
// incomplete and a retry sweeps the leftovers instead of stranding them
// behind the completed status.
func (uc *ChatUseCase) CompleteTask(ctx context.Context, userID, taskID string) error {
	task, err := uc.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task.CustomerID != userID {
		return errors.Forbidden("Only the task's customer can complete it", nil)
	}

	chats, err := uc.chatRepo.ListByTaskID(ctx, taskID)
	if err != nil {
		return err
	}

	for _, chat := range chats {
		if err := uc.chatRepo.DeleteWithMessages(ctx, chat.ID); err != nil {
			log.Printf("CompleteTask Error: Failed to purge chat %s for task %s: %v", chat.ID, taskID, err)
			return err
		}
	}

	if task.Status == entity.TaskStatusCompleted {
		return nil
	}
	if err := uc.taskRepo.UpdateStatus(ctx, taskID, entity.TaskStatusCompleted); err != nil {
		return err
	}

	log.Printf("CompleteTask: Task %s completed, purged %d chats", taskID, len(chats))
	return nil
}

func (uc *ChatUseCase) publishNewMessage(chat *entity.Chat, message *entity.Message, sender *entity.User) {
	senderName := systemSenderID
	if sender != nil {
		senderName = sender.DisplayName
	}

	notification := map[string]interface{}{
		"type":    "new_message",
		"chat_id": chat.ID,
		"message": message,
		"sender":  sender,
	}
	payload, _ := json.Marshal(notification)
	uc.publisher.PublishToChat(chat.ID, payload, message.SenderID)

	// Participants sitting on the chat list rather than in the room still
	// need the preview refreshed.
	listUpdate := map[string]interface{}{
		"type":            "chat_list_update",
		"chat_id":         chat.ID,
		"last_message":    message.Body,
		"last_message_at": message.CreatedAt.Format(time.RFC3339),
		"sender_id":       message.SenderID,
		"sender_name":     senderName,
		"message_type":    message.Type,
	}
	listPayload, _ := json.Marshal(listUpdate)
	for _, participantID := range chat.Participants {
		if participantID != message.SenderID {
			uc.publisher.PublishToUser(participantID, listPayload)
		}
	}
}
