package tokenizer

// spanishStopwords holds common Spanish function words with diacritics
// already stripped, matching the output of Normalize.
var spanishStopwords = []string{
	"de", "la", "que", "el", "en", "y", "a", "los", "se", "del",
	"las", "un", "por", "con", "no", "una", "su", "para", "es", "al",
	"lo", "como", "mas", "o", "pero", "sus", "le", "ha", "me", "si",
	"sin", "sobre", "este", "ya", "entre", "cuando", "todo", "esta", "ser", "son",
	"dos", "tambien", "fue", "habia", "era", "muy", "anos", "hasta", "desde", "esta",
	"mi", "porque", "cual", "solo", "han", "yo", "hay", "vez", "puede", "todos",
	"asi", "nos", "ni", "parte", "tiene", "el", "uno", "donde", "bien", "tiempo",
	"mismo", "ese", "ahora", "cada", "e", "vida", "otro", "despues", "te", "otros",
	"aunque", "esa", "eso", "hace", "otra", "gobierno", "tan", "durante", "siempre", "dia",
	"tanto", "ella", "tres", "si", "dijo", "sido", "gran", "pais", "segun", "menos",
	"estos", "estas", "ellos", "ellas", "nosotros", "vosotros", "usted", "ustedes", "tu", "les",
	"estan", "estoy", "estamos", "soy", "eres", "somos", "sea", "sera", "hemos", "has",
	"tengo", "tienen", "tenemos", "tenia", "haber", "estar", "quien", "quienes", "aqui", "alli",
}

// englishStopwords is used for language detection and for callers that
// want an English tokenizer.
var englishStopwords = []string{
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
	"to", "of", "in", "on", "at", "by", "with", "as", "is", "are",
	"was", "were", "be", "been", "being", "it", "this", "that", "these", "those",
	"from", "up", "down", "over", "under", "again", "further", "than", "so", "such",
	"into", "about", "between", "through", "during", "before", "after", "above", "below", "out",
	"off", "own", "same", "too", "very", "can", "will", "just", "don", "should",
	"now", "have", "has", "had", "not", "what", "which", "who", "when", "where",
	"there", "their", "they", "you", "your", "we", "our", "his", "her", "its",
}

// English returns a tokenizer filtering English stopwords.
func English() *Tokenizer { return New(englishStopwords...) }
