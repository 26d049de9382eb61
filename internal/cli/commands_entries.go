package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atotto/clipboard"
	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/filex"
	"github.com/dmitrijs2005/lockbox/internal/models"
	"github.com/dmitrijs2005/lockbox/internal/passgen"
	"github.com/dmitrijs2005/lockbox/internal/services"
	"github.com/dmitrijs2005/lockbox/internal/session"
)

// Clipboard seams; the clipboard is cleared after clipboardTTL if it still
// holds the copied secret.
var (
	writeClipboard = clipboard.WriteAll
	readClipboard  = clipboard.ReadAll
	clipboardTTL   = 30 * time.Second
)

const shortIDLen = 8

const masked = "••••••••"

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

// matchEntry resolves ref as a full id or a unique id prefix within list.
func matchEntry(list []models.Entry, ref string) (string, error) {
	var found []string
	for _, e := range list {
		if e.ID == ref {
			return e.ID, nil
		}
		if strings.HasPrefix(e.ID, ref) {
			found = append(found, e.ID)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("entry %s: %w", ref, common.ErrNotFound)
	case 1:
		return found[0], nil
	}
	return "", fmt.Errorf("%w: id prefix %s is ambiguous", common.ErrValidation, ref)
}

// resolveEntry resolves an id argument against the current vault.
func (a *App) resolveEntry(ctx context.Context, sess *session.Session, args []string, usage string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("%w: usage: %s", common.ErrValidation, usage)
	}
	list, err := a.entries.List(ctx, sess)
	if err != nil {
		return "", err
	}
	return matchEntry(list, args[0])
}

func printEntries(w io.Writer, list []models.Entry) error {
	if len(list) == 0 {
		printHint(w, "no entries")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\t\tTYPE\tTITLE\tACCOUNT")
	for _, e := range list {
		fav := ""
		if e.IsFavorite {
			fav = "★"
		}
		account := e.Username
		if account == "" {
			account = e.Email
		}
		if e.URL != "" {
			account = strings.TrimSpace(account + " " + e.URL)
		}
		if e.Type == models.EntryTypePasskey {
			account = strings.TrimSpace(e.Username + " @" + e.RelyingPartyID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", shortID(e.ID), fav, e.Type, e.Title, account)
	}
	return tw.Flush()
}

func (a *App) cmdList(ctx context.Context, _ []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	list, err := a.entries.List(ctx, sess)
	if err != nil {
		return err
	}
	return printEntries(a.out, list)
}

func (a *App) cmdSearch(ctx context.Context, args []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: search <text>", common.ErrValidation)
	}
	list, err := a.entries.Search(ctx, sess, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return printEntries(a.out, list)
}

func (a *App) cmdShow(ctx context.Context, args []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	id, err := a.resolveEntry(ctx, sess, args, "show <id> [reveal]")
	if err != nil {
		return err
	}
	reveal := len(args) > 1 && args[1] == "reveal"

	d, err := a.entries.Get(ctx, sess, id)
	if err != nil {
		return err
	}

	secret := func(field, value string) string {
		if ferr, ok := d.FieldErrors[field]; ok {
			return "<unreadable: " + ferr.Error() + ">"
		}
		if value == "" || reveal {
			return value
		}
		return masked
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", k, v)
		}
	}
	row("ID", d.ID)
	row("Title", d.Title)
	row("Type", string(d.Type))
	row("Category", d.Category)
	switch d.Type {
	case models.EntryTypeLogin:
		row("Username", d.Username)
		row("Email", d.Email)
		row("URL", d.URL)
		row("Password", secret(services.FieldPassword, d.Secrets.Password))
		if d.Secrets.Password != "" {
			row("Strength", strengthLabel(passgen.Strength(d.Secrets.Password)))
		}
	case models.EntryTypeCreditCard:
		row("Cardholder", d.CardholderName)
		row("Number", secret(services.FieldCardNumber, d.Secrets.CardNumber))
		row("Expires", d.ExpiryDate)
		row("CVV", secret(services.FieldCVV, d.Secrets.CVV))
	case models.EntryTypeCustomFile:
		row("File", fmt.Sprintf("%s (%d bytes)", d.FileName, len(d.FileData)))
	case models.EntryTypePasskey:
		row("Relying party", strings.TrimSpace(d.RelyingPartyName+" ("+d.RelyingPartyID+")"))
		row("Username", d.Username)
		row("Credential ID", d.CredentialID)
		row("User handle", d.UserHandle)
		row("Counter", fmt.Sprint(d.Counter))
		row("Private key", secret(services.FieldPrivateKey, firstLine(d.Secrets.PrivateKeyPEM)))
		if err := a.entries.VerifyPasskey(ctx, sess, d.ID); err != nil {
			row("Key pair", "invalid: "+err.Error())
		} else {
			row("Key pair", "verified")
		}
	}
	row("Notes", d.Notes)
	if d.IsFavorite {
		row("Favorite", "yes")
	}
	row("Created", d.CreatedAt.Local().Format("2006-01-02 15:04"))
	if d.ModifiedAt != nil {
		row("Modified", d.ModifiedAt.Local().Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if d.Type == models.EntryTypePasskey && reveal {
		fmt.Fprint(a.out, d.PublicKeyPEM)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

type field struct {
	prompt string
	dst    *string
}

// promptFields asks each prompt in order and stores the answer.
func (a *App) promptFields(fields []field) error {
	for _, f := range fields {
		v, err := GetSimpleText(a.reader, f.prompt, a.out)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}


func (a *App) addEntry(ctx context.Context, sess *session.Session, e *models.Entry, secrets models.Secrets) error {
	if err := a.entries.Add(ctx, sess, e, secrets); err != nil {
		return err
	}
	printSuccess(a.out, "%s %q saved (%s)", strings.ToLower(string(e.Type)), e.Title, shortID(e.ID))
	return nil
}

func (a *App) cmdAddLogin(ctx context.Context, _ []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	e := &models.Entry{Type: models.EntryTypeLogin}
	if err := a.promptFields([]field{
		{"Title", &e.Title},
		{"Username", &e.Username},
		{"Email", &e.Email},
		{"URL", &e.URL},
	}); err != nil {
		return err
	}

	pw, err := GetPassword(a.reader, "Password (empty to generate)", a.out)
	if err != nil {
		return err
	}
	password := string(pw)
	common.WipeByteArray(pw)
	if password == "" {
		if password, err = passgen.Generate(a.cfg.Generator); err != nil {
			return err
		}
		printHint(a.out, "generated a %d character password", len(password))
	}
	fmt.Fprintf(a.out, "Strength: %s\n", strengthLabel(passgen.Strength(password)))

	if err := a.promptFields([]field{{"Category", &e.Category}, {"Notes", &e.Notes}}); err != nil {
		return err
	}
	return a.addEntry(ctx, sess, e, models.Secrets{Password: password})
}

func (a *App) cmdAddCard(ctx context.Context, _ []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	e := &models.Entry{Type: models.EntryTypeCreditCard}
	if err := a.promptFields([]field{{"Title", &e.Title}, {"Cardholder name", &e.CardholderName}}); err != nil {
		return err
	}
	number, err := GetPassword(a.reader, "Card number", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(number)
	if err := a.promptFields([]field{{"Expiry (MM/YY)", &e.ExpiryDate}}); err != nil {
		return err
	}
	cvv, err := GetPassword(a.reader, "CVV", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(cvv)
	if err := a.promptFields([]field{{"Category", &e.Category}, {"Notes", &e.Notes}}); err != nil {
		return err
	}

	secrets := models.Secrets{CardNumber: strings.ReplaceAll(string(number), " ", ""), CVV: string(cvv)}
	return a.addEntry(ctx, sess, e, secrets)
}

func (a *App) cmdAddNote(ctx context.Context, _ []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	e := &models.Entry{Type: models.EntryTypeSecureNote}
	if err := a.promptFields([]field{{"Title", &e.Title}, {"Category", &e.Category}}); err != nil {
		return err
	}
	notes, err := GetMultiline(a.reader, "Note text", a.out)
	if err != nil {
		return err
	}
	e.Notes = notes
	return a.addEntry(ctx, sess, e, models.Secrets{})
}

func (a *App) cmdAddFile(ctx context.Context, _ []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	e := &models.Entry{Type: models.EntryTypeCustomFile}
	var path string
	if err := a.promptFields([]field{{"Title", &e.Title}, {"File path", &path}}); err != nil {
		return err
	}
	name, data, err := filex.ReadAttachment(path, filex.MaxAttachmentSize)
	if err != nil {
		return err
	}
	e.FileName, e.FileData = name, data
	if err := a.promptFields([]field{{"Notes", &e.Notes}}); err != nil {
		return err
	}
	return a.addEntry(ctx, sess, e, models.Secrets{})
}

func (a *App) cmdAddPasskey(ctx context.Context, _ []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	var req services.PasskeyRequest
	if err := a.promptFields([]field{
		{"Relying party id (e.g. github.com)", &req.RelyingPartyID},
		{"Relying party name", &req.RelyingPartyName},
		{"Username", &req.Username},
		{"Title (empty for relying party name)", &req.Title},
	}); err != nil {
		return err
	}

	var e *models.Entry
	err := withSpinner(a.out, "Generating RSA key pair...", func() error {
		var err error
		e, err = a.entries.AddPasskey(ctx, sess, req)
		return err
	})
	if err != nil {
		return err
	}
	printSuccess(a.out, "passkey for %s saved (%s)", e.RelyingPartyID, shortID(e.ID))
	return nil
}

// clearValue typed at an edit prompt empties the field.
const clearValue = "-"

// editFields asks each prompt with the current value shown; an empty
// answer keeps it and clearValue empties it.
func (a *App) editFields(fields []field) error {
	for _, f := range fields {
		prompt := f.prompt
		if *f.dst != "" {
			prompt += " [" + *f.dst + "]"
		}
		v, err := GetSimpleText(a.reader, prompt, a.out)
		if err != nil {
			return err
		}
		switch v {
		case "":
		case clearValue:
			*f.dst = ""
		default:
			*f.dst = v
		}
	}
	return nil
}

// editSecret reads a replacement secret; empty keeps the stored one.
func (a *App) editSecret(prompt string) (string, error) {
	b, err := GetPassword(a.reader, prompt+" (empty to keep)", a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(b)
	return string(b), nil
}

func (a *App) cmdEdit(ctx context.Context, args []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	id, err := a.resolveEntry(ctx, sess, args, "edit <id>")
	if err != nil {
		return err
	}
	d, err := a.entries.Get(ctx, sess, id)
	if err != nil {
		return err
	}
	e := d.Entry
	var secrets models.Secrets
	printHint(a.out, "press Enter to keep a value, %s to clear it", clearValue)

	if err := a.editFields([]field{{"Title", &e.Title}, {"Category", &e.Category}}); err != nil {
		return err
	}
	switch e.Type {
	case models.EntryTypeLogin:
		if err := a.editFields([]field{{"Username", &e.Username}, {"Email", &e.Email}, {"URL", &e.URL}}); err != nil {
			return err
		}
		if secrets.Password, err = a.editSecret("Password"); err != nil {
			return err
		}
		if secrets.Password != "" {
			fmt.Fprintf(a.out, "Strength: %s\n", strengthLabel(passgen.Strength(secrets.Password)))
		}
	case models.EntryTypeCreditCard:
		if err := a.editFields([]field{{"Cardholder name", &e.CardholderName}}); err != nil {
			return err
		}
		number, err := a.editSecret("Card number")
		if err != nil {
			return err
		}
		secrets.CardNumber = strings.ReplaceAll(number, " ", "")
		if err := a.editFields([]field{{"Expiry (MM/YY)", &e.ExpiryDate}}); err != nil {
			return err
		}
		if secrets.CVV, err = a.editSecret("CVV"); err != nil {
			return err
		}
	case models.EntryTypeCustomFile:
		var path string
		if err := a.promptFields([]field{{"File path (empty to keep " + e.FileName + ")", &path}}); err != nil {
			return err
		}
		if path != "" {
			if e.FileName, e.FileData, err = filex.ReadAttachment(path, filex.MaxAttachmentSize); err != nil {
				return err
			}
		}
	case models.EntryTypePasskey:
		if err := a.editFields([]field{{"Relying party name", &e.RelyingPartyName}, {"Username", &e.Username}}); err != nil {
			return err
		}
	}

	if e.Type == models.EntryTypeSecureNote {
		notes, err := GetMultiline(a.reader, "Note text (empty to keep)", a.out)
		if err != nil {
			return err
		}
		if notes != "" {
			e.Notes = notes
		}
	} else if err := a.editFields([]field{{"Notes", &e.Notes}}); err != nil {
		return err
	}

	if err := a.entries.Update(ctx, sess, &e, secrets); err != nil {
		return err
	}
	printSuccess(a.out, "%s %q updated", strings.ToLower(string(e.Type)), e.Title)
	return nil
}

func (a *App) cmdSaveFile(ctx context.Context, args []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: savefile <id> <path>", common.ErrValidation)
	}
	id, err := a.resolveEntry(ctx, sess, args, "savefile <id> <path>")
	if err != nil {
		return err
	}
	d, err := a.entries.Get(ctx, sess, id)
	if err != nil {
		return err
	}
	if d.Type != models.EntryTypeCustomFile {
		return fmt.Errorf("%w: entry has no attachment", common.ErrValidation)
	}
	if err := filex.WriteAttachment(args[1], d.FileData); err != nil {
		return err
	}
	printSuccess(a.out, "wrote %s (%d bytes)", args[1], len(d.FileData))
	return nil
}

func (a *App) cmdFavorite(ctx context.Context, args []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	id, err := a.resolveEntry(ctx, sess, args, "favorite <id>")
	if err != nil {
		return err
	}
	fav, err := a.entries.ToggleFavorite(ctx, sess, id)
	if err != nil {
		return err
	}
	if fav {
		printSuccess(a.out, "added to favorites")
	} else {
		printSuccess(a.out, "removed from favorites")
	}
	return nil
}

func (a *App) cmdDelete(ctx context.Context, args []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	id, err := a.resolveEntry(ctx, sess, args, "delete <id>")
	if err != nil {
		return err
	}
	ok, err := Confirm(a.reader, "Delete entry "+shortID(id)+"?", a.out)
	if err != nil || !ok {
		return err
	}
	if err := a.entries.Delete(ctx, sess, id); err != nil {
		return err
	}
	printSuccess(a.out, "deleted")
	return nil
}

func (a *App) cmdCopy(ctx context.Context, args []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	id, err := a.resolveEntry(ctx, sess, args, "copy <id>")
	if err != nil {
		return err
	}
	d, err := a.entries.Get(ctx, sess, id)
	if err != nil {
		return err
	}

	value, field := d.Secrets.Password, services.FieldPassword
	if d.Type == models.EntryTypeCreditCard {
		value, field = d.Secrets.CardNumber, services.FieldCardNumber
	}
	if ferr, ok := d.FieldErrors[field]; ok {
		return ferr
	}
	if value == "" {
		return fmt.Errorf("%w: nothing to copy", common.ErrValidation)
	}
	if err := writeClipboard(value); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	time.AfterFunc(clipboardTTL, func() {
		if cur, err := readClipboard(); err == nil && cur == value {
			_ = writeClipboard("")
		}
	})
	printSuccess(a.out, "copied %s to clipboard, cleared in %s", strings.ReplaceAll(field, "_", " "), clipboardTTL)
	return nil
}

func (a *App) cmdGenpass(_ context.Context, args []string) error {
	opts := a.cfg.Generator
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: length must be a number", common.ErrValidation)
		}
		opts.Length = n
	}
	pw, err := passgen.Generate(opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, pw)
	fmt.Fprintf(a.out, "Strength: %s\n", strengthLabel(passgen.Strength(pw)))
	return nil
}
