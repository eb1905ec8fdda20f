package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"kaichat/domain"
	"kaichat/errors"
	"kaichat/internal"
	"kaichat/media"
	"kaichat/repositories"
	"kaichat/runtime"
	"kaichat/search"
	"kaichat/services"
	"kaichat/storage"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Search index (Bluge)
	index, err := search.Open(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() { _ = index.Close() }()

	// 4. Repositories & session
	hub := runtime.NewHub()
	identities := repositories.NewIdentityRepository(db, hub, log)
	relationships := repositories.NewRelationshipRepository(db, hub, log)
	messages := repositories.NewMessageRepository(db, hub, log)
	sessions := repositories.NewSessionRepository(db)
	objects := storage.NewDiskObjectStore(config.ObjectStoreDir, config.UploadChunkSize, log)
	compressor := media.Compressor{TargetBytes: config.MediaTargetBytes, MaxDimension: config.MediaMaxDimension}

	session := services.NewSessionService(identities, sessions, log, config.AuthTokenDuration)

	// 5. Signals: the offline write on teardown is best-effort.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer session.OnSessionEnd()

	cli := &cli{
		config:        config,
		log:           log,
		identities:    identities,
		relationships: relationships,
		messages:      messages,
		objects:       objects,
		compressor:    compressor,
		index:         index,
		session:       session,
	}

	if identity, ok := session.Restore(); ok {
		cli.bind(identity)
		color.Green.Printf("Session restored as %s\n", identity.Handle)
	}

	return cli.loop(ctx)
}

type cli struct {
	config        internal.Config
	log           *slog.Logger
	identities    repositories.IIdentityRepository
	relationships repositories.IRelationshipRepository
	messages      repositories.IMessageRepository
	objects       storage.IObjectStore
	compressor    media.Compressor
	index         *search.Index
	session       *services.SessionService

	relations *services.RelationshipService
	reactions *services.ReactionService
	chat      *services.ChatService
	openConv  string
}

// bind wires the per-identity services once a login succeeds.
func (c *cli) bind(me domain.Identity) {
	c.relations = services.NewRelationshipService(me, c.identities, c.relationships, c.log)
	c.reactions = services.NewReactionService(me, c.messages, c.config.ReactionMaxRetries, c.log)
	c.chat = services.NewChatService(me, c.messages, c.relationships, c.objects, c.compressor, c.index, c.log)
}

func (c *cli) loop(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	color.Cyan.Println("kaichat — type 'help' for commands")
	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case line, ok := <-lines:
			if !ok {
				return scanner.Err()
			}
			if strings.TrimSpace(line) == "quit" {
				return nil
			}
			c.dispatch(ctx, line)
		}
	}
}

func (c *cli) dispatch(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]

	if err := c.execute(ctx, cmd, args); err != nil {
		color.Red.Printf("error: %v\n", err)
	}
}

func (c *cli) execute(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		printHelp()
		return nil
	case "register":
		return c.register(args)
	case "login":
		return c.login(args)
	case "logout":
		c.logout()
		return nil
	}

	if c.chat == nil {
		return fmt.Errorf("log in first")
	}

	switch cmd {
	case "directory":
		return c.directory()
	case "propose":
		return c.propose(args)
	case "accept":
		return requireArg(args, "relationship id", c.relations.Accept)
	case "decline":
		return requireArg(args, "relationship id", c.relations.Decline)
	case "open":
		return c.open(args)
	case "history":
		return c.history()
	case "send":
		return c.chat.SendText(ctx, strings.Join(args, " "))
	case "sendfile":
		return c.sendFile(ctx, args)
	case "react":
		return c.react(args)
	case "search":
		return c.search(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printHelp() {
	fmt.Println(`register <name> <handle> <phone>   request an account (pending approval)
login <handle> <phone>             start a session
directory                          list contacts, incoming requests and others
propose <identity id>              send a chat request
accept <relationship id>           accept an incoming request
decline <relationship id>          decline an incoming request
open <identity id>                 open the conversation with a contact
history                            print the open conversation
send <text>                        send a text message
sendfile <path>                    send an image or video file
react <message id> <emoji>         toggle a reaction
search <terms>                     search the open conversation
logout                             end the session
quit                               exit`)
}

func requireArg(args []string, name string, fn func(string) error) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one %s", name)
	}
	return fn(args[0])
}

func (c *cli) register(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: register <name> <handle> <phone>")
	}
	identity, err := c.identities.CreateIdentity(args[0], args[1], args[2])
	if err != nil {
		return err
	}
	color.Yellow.Printf("Registered %s (%s); awaiting approval\n", identity.Handle, identity.ID)
	return nil
}

func (c *cli) login(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: login <handle> <phone>")
	}
	if _, err := c.session.Login(args[0], args[1]); err != nil {
		return err
	}
	me, _ := c.session.Current()
	c.bind(me)
	color.Green.Printf("Logged in as %s\n", me.Handle)
	return nil
}

func (c *cli) logout() {
	if c.chat != nil {
		c.chat.Close()
	}
	c.session.Logout()
	c.relations, c.reactions, c.chat = nil, nil, nil
	c.openConv = ""
	color.Yellow.Println("Logged out")
}

func (c *cli) directory() error {
	dir, err := c.relations.Directory()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Bucket", "Identity", "Handle", "Presence", "Relationship"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, contact := range dir.Contacts {
		table.Append([]string{"contact", contact.ID, contact.Handle, presenceLabel(contact.Status), ""})
	}
	for _, incoming := range dir.Incoming {
		table.Append([]string{"incoming", incoming.From.ID, incoming.From.Handle, presenceLabel(incoming.From.Status), incoming.Request.ID})
	}
	for _, other := range dir.Others {
		table.Append([]string{"other", other.ID, other.Handle, presenceLabel(other.Status), ""})
	}
	table.Render()
	return nil
}

func presenceLabel(status domain.PresenceStatus) string {
	if status == domain.Online {
		return color.Green.Render("online")
	}
	return color.Gray.Render("offline")
}

func (c *cli) propose(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: propose <identity id>")
	}
	rel, err := c.relations.Propose(args[0])
	if err != nil {
		return err
	}
	color.Green.Printf("Request %s sent\n", rel.ID)
	return nil
}

func (c *cli) open(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: open <identity id>")
	}
	me, _ := c.session.Current()
	conversationID := domain.ConversationID(me.ID, args[0])
	if err := c.chat.Open(conversationID); err != nil {
		return err
	}
	c.openConv = conversationID
	color.Cyan.Printf("Conversation with %s opened\n", args[0])
	return nil
}

func (c *cli) history() error {
	me, _ := c.session.Current()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Sender", "Kind", "Content", "Reactions", "Message ID"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, entry := range c.chat.Visible() {
		sender := entry.SenderID
		if sender == me.ID {
			sender = "me"
		}
		content := entry.Content
		if entry.Optimistic {
			content += " (sending...)"
		}
		var reactions []string
		for symbol, who := range entry.Reactions {
			reactions = append(reactions, fmt.Sprintf("%s x%d", symbol, len(who)))
		}
		table.Append([]string{
			entry.Timestamp.Local().Format("15:04:05"),
			sender,
			string(entry.Kind),
			content,
			strings.Join(reactions, " "),
			entry.ID,
		})
	}
	table.Render()
	return nil
}

func (c *cli) sendFile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sendfile <path>")
	}
	payload, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	return c.chat.SendMedia(ctx, args[0], payload, func(percent int) {
		fmt.Printf("\ruploading... %d%%", percent)
		if percent == 100 {
			fmt.Println()
		}
	})
}

func (c *cli) react(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: react <message id> <emoji>")
	}
	if c.openConv == "" {
		return errors.ErrNoConversation
	}
	return c.reactions.Toggle(c.openConv, args[0], args[1])
}

func (c *cli) search(ctx context.Context, args []string) error {
	hits, err := c.chat.Search(ctx, strings.Join(args, " "), 20)
	if err != nil {
		return err
	}
	for _, hit := range hits {
		fmt.Printf("%s  %s: %s\n", hit.MessageID, hit.SenderID, hit.Content)
	}
	return nil
}
