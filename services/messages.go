package services

import (
	"fmt"
	"strings"

	"github.com/qianlnk/undercover/models"
)

// 群聊和私聊中展示的文本

func (s *Session) displayName(playerID string) string {
	if p := s.player(playerID); p != nil {
		return p.Name
	}
	return playerID
}

func roleTitle(role models.Role) string {
	switch role {
	case models.Civilian:
		return "Civilian"
	case models.Undercover:
		return "Undercover"
	case models.MrWhite:
		return "Mr. White"
	}
	return "Unknown"
}

// roleText 开局时发给玩家的私信，平民和卧底看到的内容相同
func roleText(p models.Player) string {
	if p.HasWord {
		return fmt.Sprintf("Your word is: %s\nDescribe it without saying it. Someone at the table holds a slightly different word.", p.Word)
	}
	return "You are Mr. White. You have no word.\nListen to the others and blend in. If you are voted out you get one guess at the civilians' word."
}

func (s *Session) startText() string {
	names := make([]string, 0, len(s.Players))
	for _, id := range s.TurnOrder {
		names = append(names, "- "+s.displayName(id))
	}
	return fmt.Sprintf("Game started with %d players.\n%s\nEveryone got their word in private. %s goes first.",
		len(s.Players), strings.Join(names, "\n"), s.displayName(s.CurrentPlayerID()))
}

func (s *Session) describedText(playerID, description string) string {
	if description == "" {
		return fmt.Sprintf("%s passed without a description.", s.displayName(playerID))
	}
	return fmt.Sprintf("%s: %q", s.displayName(playerID), description)
}

func (s *Session) eliminatedText(playerID string) string {
	p := s.player(playerID)
	return fmt.Sprintf("%s is out. They were %s.", p.Name, roleTitle(p.Role))
}

func guessPromptText(final bool) string {
	if final {
		return "Only two players are left. Send your guess of the civilians' word to win."
	}
	return "You were caught. Send your guess of the civilians' word; one try only."
}

func (s *Session) guessResultText(playerID, guess string, correct bool) string {
	if correct {
		return fmt.Sprintf("%s guessed %q. Correct!", s.displayName(playerID), guess)
	}
	return fmt.Sprintf("%s guessed %q. Wrong.", s.displayName(playerID), guess)
}

// summaryText 结束时公开词、角色和每回合的出局者
func (s *Session) summaryText() string {
	var b strings.Builder
	switch {
	case s.Terminated:
		b.WriteString("The game was ended early.\n")
	case s.Winner == models.Civilian:
		b.WriteString("Civilians win! Every impostor has been found.\n")
	case s.Winner == models.Undercover:
		b.WriteString("Undercover wins! The civilians are outnumbered.\n")
	case s.Winner == models.MrWhite && s.onlyMrWhitesLeft():
		b.WriteString("Mr. White wins! No civilian is left.\n")
	case s.Winner == models.MrWhite:
		b.WriteString("Mr. White wins by guessing the word!\n")
	}

	if s.Words.Civilian != "" {
		fmt.Fprintf(&b, "\nCivilian word: %s\nUndercover word: %s\n", s.Words.Civilian, s.Words.Undercover)
	}
	if len(s.TurnOrder) > 0 {
		b.WriteString("\nPlayers:\n")
		for _, id := range s.TurnOrder {
			p := s.player(id)
			status := "alive"
			if !p.Alive {
				status = "out"
			}
			fmt.Fprintf(&b, "- %s: %s (%s)\n", p.Name, roleTitle(p.Role), status)
		}
	}
	if len(s.History) > 0 {
		b.WriteString("\nRounds:\n")
		for _, round := range s.History {
			out := "nobody"
			if round.EliminatedID != "" {
				out = s.displayName(round.EliminatedID)
			}
			fmt.Fprintf(&b, "- round %d: %s voted out\n", round.Number, out)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Session) onlyMrWhitesLeft() bool {
	civilians, undercover, mrWhites := s.countAlive()
	return civilians == 0 && undercover == 0 && mrWhites > 0
}

// CluesText 本回合描述汇总
func CluesText(round int, clues []models.Clue) string {
	if len(clues) == 0 {
		return "No descriptions yet."
	}
	lines := make([]string, 0, len(clues))
	for _, clue := range clues {
		lines = append(lines, fmt.Sprintf("%s: %q", clue.Name, clue.Description))
	}
	return fmt.Sprintf("Round %d descriptions:\n%s", round, strings.Join(lines, "\n"))
}
