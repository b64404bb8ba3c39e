package models

// Variant описывает, какое представление элемента запрошено:
// канонический файл или именованная миниатюра.
type Variant struct {
	key string
}

// CanonicalView исходный файл элемента
var CanonicalView = Variant{}

// NamedVariant миниатюра с ключом вида "prefix_WxH"
func NamedVariant(key string) Variant {
	return Variant{key: key}
}

func (v Variant) IsCanonical() bool {
	return v.key == ""
}

func (v Variant) Key() string {
	return v.key
}

func (v Variant) String() string {
	if v.IsCanonical() {
		return "canonical"
	}
	return v.key
}
