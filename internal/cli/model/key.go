package model

// SecurityLevel5 единственный используемый уровень безопасности ключей.
const SecurityLevel5 = "SL5"

// EncryptionKey запись списка ключей хранилища: мастер-ключ, зашифрованный
// ключом, выведенным из мастер-пароля.
type EncryptionKey struct {
	Identifier string
	// Data "Salted__" + соль PBKDF2 + зашифрованный мастер-ключ.
	Data []byte
	// Validation мастер-ключ, зашифрованный самим собой.
	Validation []byte
	Iterations int
	Level      string
}
