package render

import (
	"fmt"
	"strconv"
	"strings"

	"txledger/internal/application"
	"txledger/internal/domain"
)

const exampleHash = "3bb06f21d607e8c19b0638c6f9ecd3986c377d47116f737ab1964d324223bef9"

type Config struct {
	BotName      string
	NativeSymbol string
	StoreURL     string
	Keywords     []application.Keyword
}

// Renderer turns pipeline results into reply text. Every failure message
// names the hash and a next step.
type Renderer struct {
	cfg Config
}

func NewRenderer(cfg Config) *Renderer {
	if cfg.BotName == "" {
		cfg.BotName = "LedgerBot"
	}
	if cfg.NativeSymbol == "" {
		cfg.NativeSymbol = "TRX"
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = application.DefaultKeywords
	}
	return &Renderer{cfg: cfg}
}

// Text returns the reply for result, or "" when nothing should be sent.
func (r *Renderer) Text(result application.Result) string {
	switch result.Kind {
	case application.ResultCommandHint:
		return r.commandHint(result.LedgerAvailable)
	case application.ResultHelp:
		return r.help(result.LedgerAvailable)
	case application.ResultUsageError:
		return r.usageError(result.Command)
	case application.ResultNotFound:
		return r.lookupFailed(result, "Please verify the hash is correct and try again.")
	case application.ResultUpstreamError:
		return r.lookupFailed(result, "The indexing service did not answer. Please retry in a few minutes.")
	case application.ResultStoreUnavailable:
		return r.storeUnavailable(result.Hash)
	case application.ResultDuplicate:
		return lines(
			"Transaction Already Logged",
			"",
			"Hash: "+result.Hash.String(),
			"No new row was written. Duplicate protection is active.",
		)
	case application.ResultLogged:
		return r.logged(result)
	case application.ResultLogFailed:
		return lines(
			"Logging Failed",
			"",
			"Hash: "+result.Hash.String(),
			"Error: "+result.Detail,
			"",
			"Please try again or contact the operator if the issue persists.",
		)
	case application.ResultAnalysis:
		if result.Record == nil {
			return ""
		}
		if result.Command == application.CommandStatus {
			return r.status(*result.Record)
		}
		return r.analysis(*result.Record, result.LedgerAvailable)
	default:
		return ""
	}
}

func (r *Renderer) mention() string {
	return "@" + r.cfg.BotName
}

func (r *Renderer) token(command application.Command) string {
	for _, keyword := range r.cfg.Keywords {
		if keyword.Command == command {
			return keyword.Token
		}
	}
	return "!" + command.String()
}

func (r *Renderer) commandList(ledgerAvailable bool) []string {
	out := make([]string, 0, len(r.cfg.Keywords))
	for _, keyword := range r.cfg.Keywords {
		usage := fmt.Sprintf("%s %s", r.mention(), keyword.Token)
		if keyword.Command.RequiresHash() {
			usage += ` "hash"`
		}
		var note string
		switch keyword.Command {
		case application.CommandStatus:
			note = "short status summary"
		case application.CommandGet:
			note = "full transaction analysis"
		case application.CommandLog:
			note = "save to the ledger (" + enabled(ledgerAvailable) + ")"
		case application.CommandHelp:
			note = "this guide"
		}
		out = append(out, fmt.Sprintf("- %s : %s", usage, note))
	}
	return out
}

func (r *Renderer) commandHint(ledgerAvailable bool) string {
	out := []string{"Command not recognized. Available commands:", ""}
	out = append(out, r.commandList(ledgerAvailable)...)
	out = append(out, "", "Hash must be exactly 64 hexadecimal characters; quotes around it are recommended.")
	return lines(out...)
}

func (r *Renderer) help(ledgerAvailable bool) string {
	out := []string{r.cfg.BotName + " User Guide", "", "Available commands:"}
	out = append(out, r.commandList(ledgerAvailable)...)
	out = append(out,
		"",
		"Example:",
		fmt.Sprintf(`%s %s "%s"`, r.mention(), r.token(application.CommandGet), exampleHash),
		"",
		"Notes:",
		"- Hash must be exactly 64 hexadecimal characters",
		"- "+r.token(application.CommandLog)+" never writes the same hash twice",
		"- All times are UTC",
	)
	if r.cfg.StoreURL != "" {
		out = append(out, "", "Ledger: "+r.cfg.StoreURL)
	}
	return lines(out...)
}

func (r *Renderer) usageError(command application.Command) string {
	token := r.token(command)
	return lines(
		"Invalid or missing transaction hash",
		"",
		fmt.Sprintf(`Usage: %s %s "hash_id"`, r.mention(), token),
		fmt.Sprintf(`Example: %s %s "%s"`, r.mention(), token, exampleHash),
		"",
		"Hash must be 64 hexadecimal characters.",
		fmt.Sprintf("Need help? Try %s %s", r.mention(), r.token(application.CommandHelp)),
	)
}

func (r *Renderer) lookupFailed(result application.Result, remedy string) string {
	return lines(
		"Transaction Lookup Failed",
		"",
		"Hash: "+result.Hash.String(),
		"Error: "+result.Detail,
		"",
		remedy,
		fmt.Sprintf("Need help? Try %s %s", r.mention(), r.token(application.CommandHelp)),
	)
}

func (r *Renderer) storeUnavailable(hash domain.TransactionHash) string {
	return lines(
		"Ledger Logging Not Available",
		"",
		"Hash: "+hash.String(),
		fmt.Sprintf("The %s command is currently unavailable.", r.token(application.CommandLog)),
		fmt.Sprintf("You can still analyze it with %s %s \"%s\".", r.mention(), r.token(application.CommandGet), hash),
		"Please contact the operator to enable ledger logging.",
	)
}

func (r *Renderer) logged(result application.Result) string {
	total := "N/A"
	if result.TotalCount >= 0 {
		total = strconv.Itoa(result.TotalCount)
	}
	out := []string{
		"Transaction Successfully Logged",
		"",
		"Hash: " + result.Hash.String(),
		"Result: " + result.Message,
		"",
		"Total transactions logged: " + total,
		"Duplicate protection: active",
	}
	url := r.cfg.StoreURL
	if result.Stats != nil && result.Stats.StoreURL != "" {
		url = result.Stats.StoreURL
	}
	if url != "" {
		out = append(out, "View ledger: "+url)
	}
	return lines(out...)
}

func (r *Renderer) status(record domain.CanonicalRecord) string {
	return lines(
		"Transaction Status",
		"",
		"Hash: "+record.Hash.String(),
		"Block: "+record.Block,
		"Status: "+record.Status(),
		"Result: "+record.ResultCode,
		"Confirmations: "+strconv.FormatInt(record.Confirmations, 10),
	)
}

func (r *Renderer) analysis(record domain.CanonicalRecord, ledgerAvailable bool) string {
	out := []string{
		"Transaction Details",
		"",
		"Hash: " + record.Hash.String(),
		"",
		"Block: " + record.Block,
		"Time (UTC): " + record.TimestampUTC,
		"From: " + record.FromAddress,
		"To: " + record.ToAddress,
		"Token: " + orNone(record.TokenContractAddress),
		"Token Symbol: " + record.TokenSymbol,
		"Amount: " + record.Amount + " " + record.TokenSymbol,
		"Result: " + record.ResultCode,
		"Status: " + record.Status(),
		"",
		fmt.Sprintf("Total Cost: %s %s (%s USD)", record.CostNativeDisplay(), r.cfg.NativeSymbol, record.CostFiatDisplay()),
		"Confirmations: " + strconv.FormatInt(record.Confirmations, 10),
	}
	if ledgerAvailable {
		out = append(out, "", fmt.Sprintf(`Ready to log? Use: %s %s "%s"`, r.mention(), r.token(application.CommandLog), record.Hash))
	}
	return lines(out...)
}

func enabled(ok bool) string {
	if ok {
		return "enabled"
	}
	return "disabled"
}

func orNone(value string) string {
	if value == "" {
		return "(native)"
	}
	return value
}

func lines(parts ...string) string {
	return strings.Join(parts, "\n")
}
