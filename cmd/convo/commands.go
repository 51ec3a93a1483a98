package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"convo/auth"
	"convo/contract"
	"convo/services"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// consoleNotifier renders core notifications on the terminal.
type consoleNotifier struct{}

func (consoleNotifier) Success(message string) {
	color.New(color.FgGreen).Println(message)
}

func (consoleNotifier) Failure(message string) {
	color.New(color.FgRed).Println(message)
}

func printHelp() {
	fmt.Println(`Commands:
  /signup <name> <email> <password>   create an account
  /login <email> <password>           authenticate
  /logout                             end the session
  /profile <name>                     update the display name
  /users                              list conversable users
  /select <userID>                    focus a conversation
  /history                            show the focused conversation
  /quit                               exit
Anything else is sent to the focused conversation.`)
}

// dispatch routes one input line. Selection changes pair unsubscribe
// and subscribe so the shared stream never accumulates handlers.
func dispatch(ctx context.Context, line string, session *services.SessionManager,
	chat *services.ChatSynchronizer, conns contract.IConnectionManager, notifier contract.Notifier) error {

	fields := strings.Fields(line)
	switch fields[0] {
	case "/signup":
		if len(fields) != 4 {
			notifier.Failure("usage: /signup <name> <email> <password>")
			return nil
		}
		req := auth.SignUpRequest{FullName: fields[1], Email: fields[2], Password: fields[3]}
		if err := auth.ValidateSignUp(req); err != nil {
			notifier.Failure(err.Error())
			return nil
		}
		return session.SignUp(ctx, req)

	case "/login":
		if len(fields) != 3 {
			notifier.Failure("usage: /login <email> <password>")
			return nil
		}
		req := auth.LogInRequest{Email: fields[1], Password: fields[2]}
		if err := auth.ValidateLogIn(req); err != nil {
			notifier.Failure(err.Error())
			return nil
		}
		return session.LogIn(ctx, req)

	case "/logout":
		chat.UnsubscribeFromMessages()
		return session.LogOut(ctx)

	case "/profile":
		if len(fields) < 2 {
			notifier.Failure("usage: /profile <name>")
			return nil
		}
		patch := auth.ProfilePatch{FullName: strings.Join(fields[1:], " ")}
		if err := auth.ValidateProfilePatch(patch); err != nil {
			notifier.Failure(err.Error())
			return nil
		}
		return session.UpdateProfile(ctx, patch)

	case "/users":
		if err := chat.LoadContacts(ctx); err != nil {
			return err
		}
		renderContacts(chat, conns)
		return nil

	case "/select":
		if len(fields) != 2 {
			notifier.Failure("usage: /select <userID>")
			return nil
		}
		chat.UnsubscribeFromMessages()
		chat.Select(fields[1])
		if err := chat.LoadHistory(ctx, fields[1]); err != nil {
			return err
		}
		chat.SubscribeToMessages()
		renderMessages(chat)
		return nil

	case "/history":
		renderMessages(chat)
		return nil

	default:
		if strings.HasPrefix(fields[0], "/") {
			notifier.Failure("unknown command " + fields[0])
			return nil
		}
		return chat.Send(ctx, line)
	}
}

func renderContacts(chat *services.ChatSynchronizer, conns contract.IConnectionManager) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Email", "Online"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	online := conns.OnlineUsers()
	for _, user := range chat.Contacts() {
		presence := ""
		for _, id := range online {
			if id == user.ID {
				presence = "yes"
				break
			}
		}
		table.Append([]string{user.ID, user.FullName, user.Email, presence})
	}
	table.Render()
}

func renderMessages(chat *services.ChatSynchronizer) {
	selected, ok := chat.SelectedUser()
	if ok {
		color.New(color.FgCyan).Printf("--- %s ---\n", selected.FullName)
	}
	for _, msg := range chat.Messages() {
		stamp := msg.CreatedAt.Format("15:04:05")
		color.New(color.FgYellow).Printf("[%s] %s: ", stamp, msg.SenderID)
		fmt.Println(msg.Content)
	}
}
