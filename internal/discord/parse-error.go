package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"rolegate/entity"
)

// classify maps discordgo REST errors onto the shared error taxonomy so the
// engine and the orchestrator can branch on the class instead of raw codes.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var rateErr *discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: retry after %s", entity.ErrRateLimited, rateErr.RetryAfter)
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return fmt.Errorf("%w: %s", entity.ErrPermissionDenied, restErr.Message.Message)
		case discordgo.ErrCodeUnknownInvite,
			discordgo.ErrCodeUnknownRole,
			discordgo.ErrCodeUnknownMember,
			discordgo.ErrCodeUnknownUser,
			discordgo.ErrCodeUnknownChannel,
			discordgo.ErrCodeUnknownGuild:
			return fmt.Errorf("%w: %s", entity.ErrNotFound, restErr.Message.Message)
		case discordgo.ErrCodeCannotSendMessagesToThisUser:
			return fmt.Errorf("%w: %s", entity.ErrPermissionDenied, restErr.Message.Message)
		}
		return fmt.Errorf("%w: code %d: %s", entity.ErrTransient, restErr.Message.Code, restErr.Message.Message)
	}

	return fmt.Errorf("%w: %v", entity.ErrTransient, err)
}
