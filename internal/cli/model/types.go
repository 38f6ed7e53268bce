package model

// TombstoneType имя типа, которым помечаются удалённые записи.
const TombstoneType = "system.Tombstone"

// Основные имена типов записей Agile Keychain.
const (
	LoginType      = "webforms.WebForm"
	PasswordType   = "passwords.Password"
	SecureNoteType = "securenotes.SecureNote"
	CreditCardType = "wallet.financial.CreditCard"
	IdentityType   = "identities.Identity"
	FolderType     = "system.folder.Regular"
)

// ItemTypeInfo человекочитаемое описание типа записи.
type ItemTypeInfo struct {
	Name       string
	ShortAlias string
}

// ItemTypes отображает typeName в описание типа.
var ItemTypes = map[string]ItemTypeInfo{
	LoginType:                          {"Login", "login"},
	PasswordType:                       {"Password", "pass"},
	SecureNoteType:                     {"Secure Note", "note"},
	CreditCardType:                     {"Credit Card", "card"},
	IdentityType:                       {"Identity", "id"},
	"wallet.financial.BankAccountUS":   {"Bank Account", "bank"},
	"wallet.government.DriversLicense": {"Driver's License", "driver"},
	"wallet.onlineservices.Email.v2":   {"Email Account", "email"},
	"wallet.membership.Membership":     {"Membership", "member"},
	"wallet.government.Passport":       {"Passport", "passport"},
	"wallet.membership.RewardProgram":  {"Reward Program", "reward"},
	"wallet.computer.Router":           {"Wireless Router", "router"},
	"wallet.computer.License":          {"Software License", "software"},
	"wallet.government.SsnUS":          {"Social Security Number", "ssn"},
	FolderType:                         {"Folder", "folder"},
	"system.folder.SavedSearch":        {"Smart Folder", "smart-folder"},
	TombstoneType:                      {"Tombstone", "tombstone"},
}

// TypeDisplayName возвращает название типа или "Unknown".
func TypeDisplayName(typeName string) string {
	if t, ok := ItemTypes[typeName]; ok {
		return t.Name
	}
	return "Unknown"
}

// FieldKind вид поля в секции записи.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldPassword
	FieldAddress
	FieldDate
	FieldMonthYear
	FieldURL
	FieldCreditCardType
	FieldPhone
	FieldGender
	FieldEmail
	FieldMenu
)

// FormFieldType тип поля HTML-формы входа.
type FormFieldType int

const (
	FormFieldText FormFieldType = iota
	FormFieldPassword
	FormFieldEmail
	FormFieldCheckbox
	FormFieldInput
)

// Designation значения поля designation у полей формы.
const (
	DesignationUsername = "username"
	DesignationPassword = "password"
)
