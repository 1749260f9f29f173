package document

import "golang.org/x/text/language"

// labels holds the fixed text of a proposal document in one language.
type labels struct {
	Title            string
	ClientSection    string
	Name             string
	Email            string
	Phone            string
	TaxID            string
	FinancingSection string
	PropertyValue    string
	DownPayment      string
	LoanAmount       string
	InterestRate     string
	RateSuffix       string
	Term             string
	TermFormat       string // years, installments
	MonthlyPayment   string
	TotalAmount      string
	TotalInterest    string
	SignatureSection string
	GeneratedAt      string
	DateLayout       string
	Validity         string
	DecimalComma     bool
}

var portugueseLabels = labels{
	Title:            "PROPOSTA DE FINANCIAMENTO IMOBILIÁRIO",
	ClientSection:    "DADOS DO CLIENTE",
	Name:             "Nome",
	Email:            "E-mail",
	Phone:            "Telefone",
	TaxID:            "CPF",
	FinancingSection: "DETALHES DO FINANCIAMENTO",
	PropertyValue:    "Valor do Imóvel",
	DownPayment:      "Entrada",
	LoanAmount:       "Valor Financiado",
	InterestRate:     "Taxa de Juros",
	RateSuffix:       "a.a.",
	Term:             "Prazo",
	TermFormat:       "%d anos (%d parcelas)",
	MonthlyPayment:   "Parcela Mensal",
	TotalAmount:      "Valor Total",
	TotalInterest:    "Total de Juros",
	SignatureSection: "ASSINATURA DIGITAL",
	GeneratedAt:      "Documento gerado em",
	DateLayout:       "02/01/2006 15:04",
	Validity:         "Este documento possui validade legal para fins de proposta de financiamento.",
	DecimalComma:     true,
}

var englishLabels = labels{
	Title:            "MORTGAGE FINANCING PROPOSAL",
	ClientSection:    "CLIENT DETAILS",
	Name:             "Name",
	Email:            "Email",
	Phone:            "Phone",
	TaxID:            "Tax ID",
	FinancingSection: "FINANCING DETAILS",
	PropertyValue:    "Property value",
	DownPayment:      "Down payment",
	LoanAmount:       "Amount financed",
	InterestRate:     "Interest rate",
	RateSuffix:       "per year",
	Term:             "Term",
	TermFormat:       "%d years (%d installments)",
	MonthlyPayment:   "Monthly payment",
	TotalAmount:      "Total amount",
	TotalInterest:    "Total interest",
	SignatureSection: "DIGITAL SIGNATURE",
	GeneratedAt:      "Generated on",
	DateLayout:       "01/02/2006 15:04",
	Validity:         "This document is valid as a financing proposal.",
}

func labelsFor(locale string) labels {
	tag, err := language.Parse(locale)
	if err != nil {
		return portugueseLabels
	}
	if base, _ := tag.Base(); base.String() == "en" {
		return englishLabels
	}
	return portugueseLabels
}
