package discord

import (
	"context"
	"os"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/atorsvn/neku-bot/internal/channel"
)

// Adapter is the Discord front door. It listens for prefixed commands and
// replies with the generated video attached.
type Adapter struct {
	token    string
	prefix   string
	session  *discordgo.Session
	incoming chan *channel.Message
}

// NewAdapter creates a Discord adapter. Commands start with prefix followed by
// the prompt text.
func NewAdapter(token, prefix string) *Adapter {
	return &Adapter{
		token:    token,
		prefix:   prefix,
		incoming: make(chan *channel.Message, 100),
	}
}

func (d *Adapter) Name() string { return "discord" }

func (d *Adapter) IsEnabled() bool { return d.token != "" }

func (d *Adapter) Start(ctx context.Context) error {
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return err
	}
	session.Identify.Intents |= discordgo.IntentMessageContent
	d.session = session

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author.Bot {
			return
		}
		content, ok := d.parseCommand(m.Content)
		if !ok {
			return
		}
		d.incoming <- &channel.Message{
			ID:        m.ID,
			Channel:   "discord",
			UserID:    m.Author.ID,
			UserName:  m.Author.Username,
			ChannelID: m.ChannelID,
			Content:   content,
			Timestamp: m.Timestamp.Unix(),
		}
	})

	if err := session.Open(); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		session.Close()
	}()
	return nil
}

func (d *Adapter) Stop() error {
	if d.session != nil {
		d.session.Close()
	}
	close(d.incoming)
	return nil
}

// Typing shows the typing indicator in the originating channel.
func (d *Adapter) Typing(msg *channel.Message) {
	if d.session != nil {
		_ = d.session.ChannelTyping(msg.ChannelID)
	}
}

// Reply answers in the originating channel, attaching the response file when
// present.
func (d *Adapter) Reply(msg *channel.Message, resp *channel.Response) error {
	send := &discordgo.MessageSend{
		Content: resp.Content,
		Reference: &discordgo.MessageReference{
			MessageID: msg.ID,
			ChannelID: msg.ChannelID,
		},
	}
	if resp.FilePath != "" {
		f, err := os.Open(resp.FilePath)
		if err != nil {
			return err
		}
		defer f.Close()
		send.Files = []*discordgo.File{{
			Name:   "neku.mp4",
			Reader: f,
		}}
	}
	_, err := d.session.ChannelMessageSendComplex(msg.ChannelID, send)
	return err
}

func (d *Adapter) Incoming() <-chan *channel.Message {
	return d.incoming
}

// parseCommand strips the command prefix, returning the prompt and whether the
// message was addressed to the bot at all.
func (d *Adapter) parseCommand(content string) (string, bool) {
	if !strings.HasPrefix(content, d.prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(content, d.prefix)
	if rest != "" && !strings.HasPrefix(rest, " ") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
