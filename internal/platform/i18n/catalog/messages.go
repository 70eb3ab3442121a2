package catalog

// Keys are the error codes from internal/platform/errors; they are repeated
// as strings to keep this package free of domain imports.
var enUS = map[string]string{
	"UNKNOWN":           "Something went wrong. Please try again.",
	"VALIDATION_FAILED": "Please fill in all fields.",
	"INVALID_FORMAT":    "Invalid file format. Please upload a {{if .Kind}}{{.Kind}}{{else}}supported{{end}} file.",
	"INVALID_DATE":      "Invalid date format. Please use YYYY-MM-DD.",
	"DUPLICATE_EMAIL":   "User already exists.",
	"AUTH_FAILED":       "Invalid email or password.",
	"UNAUTHENTICATED":   "Please log in to continue.",
	"FORBIDDEN":         "Unauthorized access.",
	"QUOTA_EXCEEDED":    "You can only upload up to {{.Limit}} PDFs.",
	"NOT_FOUND":         "The requested item was not found.",
	"IO_FAILURE":        "The file could not be processed. Please try again.",
}

var ptBR = map[string]string{
	"UNKNOWN":           "Algo deu errado. Tente novamente.",
	"VALIDATION_FAILED": "Preencha todos os campos.",
	"INVALID_FORMAT":    "Formato de arquivo inválido. Envie um arquivo {{if .Kind}}{{.Kind}}{{else}}suportado{{end}}.",
	"INVALID_DATE":      "Data inválida. Use o formato AAAA-MM-DD.",
	"DUPLICATE_EMAIL":   "Usuário já existe.",
	"AUTH_FAILED":       "E-mail ou senha inválidos.",
	"UNAUTHENTICATED":   "Faça login para continuar.",
	"FORBIDDEN":         "Acesso não autorizado.",
	"QUOTA_EXCEEDED":    "Você só pode enviar até {{.Limit}} PDFs.",
	"NOT_FOUND":         "O item solicitado não foi encontrado.",
	"IO_FAILURE":        "Não foi possível processar o arquivo. Tente novamente.",
}
