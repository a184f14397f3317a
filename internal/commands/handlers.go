package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"musicbot/internal/assets"
	"musicbot/internal/logging"
	"musicbot/internal/media"
	"musicbot/internal/messages"
	"musicbot/internal/pipeline"
	"musicbot/internal/services"
	"musicbot/internal/userconfig"
	"musicbot/internal/workspace"
)

func (d *Dispatcher) ensure(ctx context.Context, userID int64) error {
	if _, err := d.workspaces.Ensure(ctx, userID); err != nil {
		return failWith(messages.SetupFailed, err)
	}
	return nil
}

func (d *Dispatcher) handleStart(ctx context.Context, msg Message, conv Conversation, _ []string) error {
	if err := d.ensure(ctx, msg.UserID); err != nil {
		return err
	}
	return conv.Reply(ctx, d.messages.Text(messages.Welcome))
}

func (d *Dispatcher) handleHelp(ctx context.Context, msg Message, conv Conversation, _ []string) error {
	if err := d.ensure(ctx, msg.UserID); err != nil {
		return err
	}
	return conv.Reply(ctx, d.messages.Text(messages.Help))
}

func (d *Dispatcher) handleConfig(ctx context.Context, msg Message, conv Conversation, args []string) error {
	if err := d.ensure(ctx, msg.UserID); err != nil {
		return err
	}
	if msg.Document != nil && strings.EqualFold(strings.TrimSpace(msg.Caption), userconfig.UpdateDirective) {
		if !userconfig.IsUpdateRequest(msg.Document.FileName, msg.Caption) {
			return conv.Reply(ctx, d.messages.Text(messages.ConfigWrongName))
		}
		return d.putConfig(ctx, msg, conv)
	}
	if msg.Document == nil && len(args) == 0 {
		return d.getConfig(ctx, msg, conv)
	}
	return conv.Reply(ctx, d.messages.Text(messages.ConfigUsage))
}

func (d *Dispatcher) getConfig(ctx context.Context, msg Message, conv Conversation) error {
	if _, err := d.configs.ReadRaw(ctx, msg.UserID); err != nil {
		if errors.Is(err, userconfig.ErrConfigMissing) {
			return failWith(messages.ConfigMissing, err)
		}
		return failWith(messages.ConfigFailed, err)
	}
	path := d.workspaces.Locate(msg.UserID, workspace.KindConfig)
	if err := conv.SendDocument(ctx, path, d.messages.Text(messages.ConfigCaption)); err != nil {
		return failWith(messages.ConfigFailed, fmt.Errorf("send config: %w", err))
	}
	logging.WithContext(ctx, d.logger).Info("config sent", logging.String(logging.FieldEventType, "config_sent"))
	return nil
}

func (d *Dispatcher) putConfig(ctx context.Context, msg Message, conv Conversation) error {
	body, err := conv.Fetcher().Fetch(ctx, msg.Document.ID)
	if err != nil {
		return failWith(messages.ConfigFailed, fmt.Errorf("fetch config upload: %w", err))
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, userconfig.MaxDocumentBytes+1))
	if err != nil {
		return failWith(messages.ConfigFailed, fmt.Errorf("read config upload: %w", err))
	}

	if _, err := d.configs.Replace(ctx, msg.UserID, data); err != nil {
		if errors.Is(err, userconfig.ErrConfigInvalid) {
			return failWith(messages.ConfigInvalid, err, invalidDetail(err))
		}
		return failWith(messages.ConfigFailed, err)
	}
	return conv.Reply(ctx, d.messages.Text(messages.ConfigUpdated))
}

// invalidDetail strips the error markers, leaving the parser's explanation.
func invalidDetail(err error) string {
	detail := err.Error()
	if idx := strings.LastIndex(detail, userconfig.ErrConfigInvalid.Error()+": "); idx >= 0 {
		detail = detail[idx+len(userconfig.ErrConfigInvalid.Error())+2:]
	}
	return strings.TrimSpace(detail)
}

func (d *Dispatcher) handleUpload(ctx context.Context, msg Message, conv Conversation, args []string) error {
	if err := d.ensure(ctx, msg.UserID); err != nil {
		return err
	}
	kind := ""
	if len(args) > 0 {
		kind = strings.ToLower(args[0])
	}

	target := replyMedia(msg)
	switch {
	case target == nil && kind == "":
		return conv.Reply(ctx, d.messages.Text(messages.UploadUsage))
	case target == nil:
		return conv.Reply(ctx, d.messages.Text(messages.UploadNeedsReply, kind))
	case kind == "":
		return conv.Reply(ctx, d.messages.Text(messages.UploadNeedsKind))
	}

	slot, err := d.assets.Store(ctx, msg.UserID, kind, *target, conv.Fetcher())
	if err != nil {
		if errors.Is(err, assets.ErrUnknownSlotKind) {
			return failWith(messages.UploadUnknownKind, err, kind)
		}
		return failWith(messages.UploadFailed, err)
	}
	return conv.Reply(ctx, d.messages.Text(messages.UploadStored, string(slot.Kind), slot.Meta.OriginalName))
}

// replyMedia returns the file the message replies to.
func replyMedia(msg Message) *media.Source {
	if msg.ReplyTo == nil {
		return nil
	}
	if msg.ReplyTo.Document != nil {
		return msg.ReplyTo.Document
	}
	return msg.ReplyTo.Audio
}

var errPermission = fmt.Errorf("%w: admin command from a non-admin", services.ErrPermission)

func (d *Dispatcher) handleAdmin(ctx context.Context, msg Message, conv Conversation, args []string) error {
	if !d.privileges.IsPrivileged(msg.UserID) {
		return failWith(messages.AdminDenied, errPermission)
	}
	if len(args) != 2 {
		return conv.Reply(ctx, d.messages.Text(messages.AdminUsage))
	}
	action := strings.ToLower(args[0])
	target, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return failWith(messages.AdminBadID, services.Wrap(services.ErrValidation, "commands", "admin", "parse user id", err))
	}
	id := strconv.FormatInt(target, 10)
	logger := logging.WithContext(ctx, d.logger).With(logging.Int64("target_user_id", target))

	switch action {
	case "add":
		if !d.privileges.Grant(target) {
			return conv.Reply(ctx, d.messages.Text(messages.AdminAlreadyExists, id))
		}
		logger.Info("admin granted", logging.String(logging.FieldEventType, "admin_granted"))
		return conv.Reply(ctx, d.messages.Text(messages.AdminAdded, id))
	case "del":
		if !d.privileges.Revoke(target) {
			return conv.Reply(ctx, d.messages.Text(messages.AdminNotFound, id))
		}
		logger.Info("admin revoked", logging.String(logging.FieldEventType, "admin_revoked"))
		return conv.Reply(ctx, d.messages.Text(messages.AdminRemoved, id))
	default:
		return conv.Reply(ctx, d.messages.Text(messages.AdminUnknownAction))
	}
}

func (d *Dispatcher) handleAudio(ctx context.Context, msg Message, conv Conversation, _ []string) error {
	if err := d.ensure(ctx, msg.UserID); err != nil {
		return err
	}
	// The pipeline replies to the user itself, so its failures are not
	// returned here.
	d.audio.Process(ctx, pipeline.Submission{
		UserID:    msg.UserID,
		Source:    *msg.Audio,
		Fetcher:   conv.Fetcher(),
		Requester: newRequester(conv),
	})
	return nil
}
